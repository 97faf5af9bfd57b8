package changer_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/control"
)

type fakeEngine struct {
	triggers   atomic.Int64
	refreshes  atomic.Int64
	lastFolder atomic.Value
	running    atomic.Bool
}

func (f *fakeEngine) HandleTrigger(ctx context.Context) bool {
	f.triggers.Add(1)
	return true
}

func (f *fakeEngine) Refresh(ctx context.Context, folder string, forced bool) error {
	f.refreshes.Add(1)
	f.lastFolder.Store(folder)
	return nil
}

func (f *fakeEngine) Stop(ctx context.Context) { f.running.Store(false) }
func (f *fakeEngine) Running() bool            { return f.running.Load() }
func (f *fakeEngine) CatalogSize() int         { return 3 }

func startServer(t *testing.T, engine *fakeEngine) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "nwc.sock")
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	go func() {
		_ = control.NewServer(engine, nil, nil).Serve(ctx, socket)
	}()

	// Wait for the socket to accept connections.
	client := changer.NewClient(socket)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := client.Status(context.Background()); err == nil {
			return socket
		}
		if time.Now().After(deadline) {
			t.Fatal("control server never came up")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestClientAgainstControlServer(t *testing.T) {
	engine := &fakeEngine{}
	engine.running.Store(true)
	client := changer.NewClient(startServer(t, engine))
	ctx := t.Context()

	started, err := client.Trigger(ctx)
	if err != nil || !started {
		t.Fatalf("trigger = (%v, %v)", started, err)
	}
	if engine.triggers.Load() != 1 {
		t.Fatalf("daemon saw %d triggers, want 1", engine.triggers.Load())
	}

	if err := client.Refresh(ctx, "/new/folder", true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if engine.refreshes.Load() != 1 {
		t.Fatalf("daemon saw %d refreshes, want 1", engine.refreshes.Load())
	}

	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Running || st.CatalogSize != 3 {
		t.Fatalf("status = %+v", st)
	}

	if err := client.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if engine.Running() {
		t.Fatal("engine still running after stop")
	}
}

func TestClientRefreshEscapesFolder(t *testing.T) {
	engine := &fakeEngine{}
	client := changer.NewClient(startServer(t, engine))

	// Spaces and query metacharacters must survive the round trip intact.
	folder := "/home/user/My Wallpapers & more?really=yes"
	if err := client.Refresh(t.Context(), folder, true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := engine.lastFolder.Load(); got != folder {
		t.Fatalf("daemon saw folder %q, want %q", got, folder)
	}
}

func TestClientDaemonUnavailable(t *testing.T) {
	client := changer.NewClient(filepath.Join(t.TempDir(), "no.sock"))
	_, err := client.Status(t.Context())
	if !errors.Is(err, changer.ErrDaemonUnavailable) {
		t.Fatalf("err = %v, want ErrDaemonUnavailable", err)
	}
}
