package trigger

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestSignalSourceFires(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var fired atomic.Int64
	done := make(chan error, 1)
	go func() {
		done <- SignalSource{Signal: syscall.SIGUSR2}.Run(ctx, func() {
			fired.Add(1)
		})
	}()

	// Give Notify a moment to install before kicking ourselves.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatalf("kill: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("signal never fired the handler")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestCronSourceFiresOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var fired atomic.Int64
	done := make(chan error, 1)
	go func() {
		done <- CronSource{Every: 20 * time.Millisecond}.Run(ctx, func() {
			fired.Add(1)
		})
	}()

	deadline := time.After(3 * time.Second)
	for fired.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d firings before deadline", fired.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestCronSourceRejectsEmptyConfig(t *testing.T) {
	if err := (CronSource{}).Run(t.Context(), func() {}); err == nil {
		t.Fatal("empty cron source must error")
	}
}
