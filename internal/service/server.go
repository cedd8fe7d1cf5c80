package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"animrig/internal/config"
	"animrig/internal/logging"
	"animrig/internal/staging"
)

// JobRunner executes one rigging job end-to-end.
type JobRunner interface {
	Run(ctx context.Context, req staging.Request) (*staging.Result, error)
}

// Server is the HTTP adapter over the staging session.
type Server struct {
	cfg    *config.Config
	runner JobRunner
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	// One job at a time: the engine owns a single accelerator.
	jobMu sync.Mutex

	listener net.Listener
	server   *http.Server
}

// New constructs the service server.
func New(cfg *config.Config, runner JobRunner, logger *slog.Logger) (*Server, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("service requires config and job runner")
	}

	lockPath := filepath.Join(cfg.Paths.WorkDir, "animrigd.lock")
	srv := &Server{
		cfg:      cfg,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "service"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/rig", srv.handleRig)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Start acquires the instance lock and begins serving until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.Paths.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another animrigd instance is already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Service.Bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("service listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("service error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("service listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath))
	return nil
}

// Stop shuts the server down and releases the instance lock.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	if err := s.lock.Unlock(); err != nil && !errors.Is(err, os.ErrInvalid) {
		s.logger.Warn("failed to release instance lock", logging.Error(err))
	}
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req rigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	result, err := s.runner.Run(r.Context(), staging.Request{
		InputRef:     req.InputURI,
		AnimationRef: req.AnimationURI,
		Config:       req.Config,
	})
	if err != nil {
		s.logger.Error("rig request failed",
			logging.String("input", req.InputURI),
			logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, rigResponse{
		JobID:     result.JobID,
		ResultURI: result.ResultRef,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
