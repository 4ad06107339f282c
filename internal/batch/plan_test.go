package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hevcpress/internal/model"
)

func TestPlan(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	mtime := time.Date(2020, 3, 1, 9, 0, 0, 0, time.UTC)
	writeSource(t, filepath.Join(in, "new.mov"), mtime)
	writeSource(t, filepath.Join(in, "done.mov"), mtime)

	// Pre-existing output with a preserved timestamp marks done.mov as skip.
	existing := filepath.Join(out, "done.mp4")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("encoded"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(existing, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	svc := NewService(
		WithCLIOptions(model.CLIOptions{InputPath: in, OutputPath: out, GPU: true}),
	)
	entries, err := svc.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Discovery order is lexical: done.mov before new.mov.
	if !entries[0].Skip {
		t.Error("done.mov should be marked skip")
	}
	if entries[1].Skip {
		t.Error("new.mov should not be marked skip")
	}
	if entries[1].Dest.Path != filepath.Join(out, "new.mp4") {
		t.Errorf("dest = %q", entries[1].Dest.Path)
	}
	for _, e := range entries {
		if e.Mode != model.ModeGPU {
			t.Errorf("mode = %v, want GPU", e.Mode)
		}
	}

	// Plan never creates anything.
	if _, err := os.Stat(filepath.Join(out, "new.mp4")); !os.IsNotExist(err) {
		t.Error("Plan must not touch the output tree")
	}
}

func TestPlanFlagsCollidingDestinations(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	mtime := time.Date(2020, 3, 1, 9, 0, 0, 0, time.UTC)
	writeSource(t, filepath.Join(in, "clip.avi"), mtime)
	writeSource(t, filepath.Join(in, "clip.mov"), mtime)

	svc := NewService(WithCLIOptions(model.CLIOptions{InputPath: in}))
	entries, err := svc.Plan()
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].CollidesWith != "" {
		t.Errorf("first entry flagged as colliding with %q", entries[0].CollidesWith)
	}
	if entries[1].CollidesWith != entries[0].Source.Path {
		t.Errorf("CollidesWith = %q, want %q", entries[1].CollidesWith, entries[0].Source.Path)
	}
}
