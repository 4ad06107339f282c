package upload

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeAppendOnly lets the app add media without reading the library.
const ScopeAppendOnly = "https://www.googleapis.com/auth/photoslibrary.appendonly"

// NewConfig builds the OAuth config for the Photos Library API.
func NewConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{ScopeAppendOnly},
	}
}

// Authorize runs the browser consent flow: it starts a loopback listener,
// prints the consent URL, waits for the redirect, exchanges the code, and
// persists the token to tokenPath. The caller is expected to open the URL.
func Authorize(ctx context.Context, conf *oauth2.Config, tokenPath string) error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("start callback listener: %w", err)
	}
	defer ln.Close()

	conf.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	state, err := randomState()
	if err != nil {
		return err
	}

	type callback struct {
		code string
		err  error
	}
	ch := make(chan callback, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("state") != state {
			ch <- callback{err: errors.New("state mismatch in OAuth callback")}
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			ch <- callback{err: fmt.Errorf("consent denied: %s", e)}
			fmt.Fprintln(w, "Authorization failed. You can close this window.")
			return
		}
		ch <- callback{code: q.Get("code")}
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
	})}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize uploads:\n\n  %s\n\n", url)

	var cb callback
	select {
	case cb = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if cb.err != nil {
		return cb.err
	}

	tok, err := conf.Exchange(ctx, cb.code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return SaveToken(tokenPath, tok)
}

// LoadToken reads a persisted OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token file %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken persists an OAuth token with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func randomState() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}
