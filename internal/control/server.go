// Package control exposes the daemon's command surface over a unix socket:
// trigger, refresh, stop and status. HTTP keeps the wire format boring and
// lets the CLI reuse a stock client.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
)

// Rotator is the slice of the swap engine the control surface needs.
type Rotator interface {
	HandleTrigger(ctx context.Context) bool
	Refresh(ctx context.Context, folder string, forced bool) error
	Stop(ctx context.Context)
	Running() bool
	CatalogSize() int
}

// Status is the payload of GET /status.
type Status struct {
	Running     bool `json:"running"`
	CatalogSize int  `json:"catalog_size"`
}

// TriggerResult is the payload of POST /trigger.
type TriggerResult struct {
	// Started is false when the trigger was dropped by the swap gate.
	Started bool `json:"started"`
}

// Server serves control commands for one engine.
type Server struct {
	engine Rotator
	logger *slog.Logger
	// stop requests daemon shutdown; wired by the daemon so POST /stop
	// terminates the process loop, not just the rotation.
	stop func()
}

func NewServer(engine Rotator, stop func(), logger *slog.Logger) *Server {
	return &Server{
		engine: engine,
		logger: logging.Default(logger).With("component", "control"),
		stop:   stop,
	}
}

// Handler returns the HTTP mux for the control surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /trigger", s.handleTrigger)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// Serve listens on a unix socket at path until ctx is canceled. A stale
// socket from a previous run is removed first.
func (s *Server) Serve(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to chmod socket: %w", err)
	}

	srv := &http.Server{Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("control socket listening", "path", path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = os.Remove(path)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	// The cycle outlives this request; it must not die with its context.
	started := s.engine.HandleTrigger(context.WithoutCancel(r.Context()))
	s.logger.Debug("trigger command", "started", started)
	writeJSON(w, http.StatusAccepted, TriggerResult{Started: started})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	forced := r.URL.Query().Get("forced") == "true"
	folder := r.URL.Query().Get("folder")

	if err := s.engine.Refresh(context.WithoutCancel(r.Context()), folder, forced); err != nil {
		s.logger.Warn("refresh command failed", "error", err)
		http.Error(w, fmt.Sprintf("refresh failed: %v", err), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop(r.Context())
	w.WriteHeader(http.StatusOK)
	if s.stop != nil {
		// After the response: the daemon tears down this very server.
		go s.stop()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Status{
		Running:     s.engine.Running(),
		CatalogSize: s.engine.CatalogSize(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode control response", "error", err)
	}
}
