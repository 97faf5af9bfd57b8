package daemon

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestDaemonEndToEnd(t *testing.T) {
	dir := t.TempDir()
	folder := filepath.Join(dir, "wallpapers")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writePNG(t, filepath.Join(folder, "a.png"))
	writePNG(t, filepath.Join(folder, "b.png"))

	cfg := Config{
		Folder:     folder,
		Settle:     -1,
		Socket:     filepath.Join(dir, "nwc.sock"),
		DBPath:     filepath.Join(dir, "prefs.db"),
		CommitFile: filepath.Join(dir, "lockscreen"),
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, nil) }()

	client := changer.NewClient(cfg.Socket)

	// Wait for the control surface.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if st, err := client.Status(context.Background()); err == nil && st.Running {
			if st.CatalogSize != 2 {
				t.Fatalf("catalog size %d, want 2", st.CatalogSize)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("daemon never became ready")
		}
		time.Sleep(20 * time.Millisecond)
	}

	started, err := client.Trigger(t.Context())
	if err != nil || !started {
		t.Fatalf("trigger = (%v, %v)", started, err)
	}

	// The cycle runs in the background; wait for the committed file.
	for {
		if _, err := os.Stat(cfg.CommitFile); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no wallpaper committed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := client.Stop(t.Context()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("daemon exited with %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not exit after stop")
	}
}

func TestDaemonRequiresSocket(t *testing.T) {
	if err := Run(t.Context(), Config{}, nil); err == nil {
		t.Fatal("daemon without a socket must fail")
	}
}
