package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hevcpress/internal/dirs"
	"hevcpress/internal/upload"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "auth",
		Short:         "Authorize Google Photos uploads via the browser consent flow",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID, _ := cmd.Flags().GetString("client-id")
			clientSecret, _ := cmd.Flags().GetString("client-secret")
			if clientID == "" {
				clientID = viper.GetString("upload_client_id")
			}
			if clientSecret == "" {
				clientSecret = viper.GetString("upload_client_secret")
			}
			if clientID == "" || clientSecret == "" {
				return &ExitError{Code: ExitCLIError, Err: errors.New("OAuth client credentials required: set --client-id/--client-secret or HEVCPRESS_UPLOAD_CLIENT_ID/HEVCPRESS_UPLOAD_CLIENT_SECRET")}
			}

			tokenPath, err := dirs.TokenPath()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			conf := upload.NewConfig(clientID, clientSecret)
			if err := upload.Authorize(cmd.Context(), conf, tokenPath); err != nil {
				return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("authorization failed: %w", err)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authorized. Credential saved to %s\n", tokenPath)
			return nil
		},
	}
	cmd.Flags().String("client-id", "", "Google OAuth client ID")
	cmd.Flags().String("client-secret", "", "Google OAuth client secret")
	return cmd
}
