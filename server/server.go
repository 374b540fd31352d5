// Package server provides the HTTP surface of botd.
//
// The server exposes a REST API to submit routines to the controller, cancel
// queued actions and inspect the queues, the completion history and the
// schedules.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/status - Consolidated status (robot, queues, totals, schedules)
//   - GET /config - Returns the active configuration as YAML, secrets redacted
//   - POST /api/actions - Queues a routine
//   - POST /api/cancel - Cancels by tag, or by action type and slot
//   - GET /api/history - Completed, failed, cancelled and rejected actions
//   - GET /api/actions/{tag}/logs - Captured log lines of one action
//   - GET /api/routines - The routine catalog
//   - GET /api/world - The objects in the world model
//   - POST /api/schedules/{name}/run - Fires a schedule now
//   - GET /metrics - Prometheus exposition, in scrape mode only
//
// # Example
//
//	srv, err := server.New(&cfg, ctrl, board, server.WithCron(mgr))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/config"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/logging"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/server/cron"
	"github.com/nomis52/botcore/server/handlers"
	"github.com/nomis52/botcore/status"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultListenAddr      = ":8080"
)

// Server is the HTTP server in front of a controller.
type Server struct {
	addr    string
	config  *config.Config
	logger  *slog.Logger
	ctrl    *controller.Controller
	board   *status.Board
	logs    *logging.ActionLogs
	cron    *cron.Manager
	metrics http.Handler
	certs   *CertLoader
	world   WorldSnapshotter
}

// WorldSnapshotter copies the world model. robot/sim.World implements it.
type WorldSnapshotter interface {
	Snapshot() ([]robot.Object, error)
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr configures the address the server listens on.
// Default is ":8080", or the server.listen config value when set.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithCron attaches a schedule manager. It is started by Run.
func WithCron(m *cron.Manager) Option {
	return func(s *Server) error {
		s.cron = m
		return nil
	}
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) error {
		s.metrics = h
		return nil
	}
}

// WithActionLogs serves the captured per action logs.
func WithActionLogs(logs *logging.ActionLogs) Option {
	return func(s *Server) error {
		s.logs = logs
		return nil
	}
}

// WithWorld serves the objects of w on /api/world.
func WithWorld(w WorldSnapshotter) Option {
	return func(s *Server) error {
		s.world = w
		return nil
	}
}

// WithTLS serves HTTPS with the given key pair. The files are re-read when
// they change.
func WithTLS(certFile, keyFile string) Option {
	return func(s *Server) error {
		certs, err := NewCertLoader(certFile, keyFile, s.logger)
		if err != nil {
			return fmt.Errorf("loading tls certificate: %w", err)
		}
		s.certs = certs
		return nil
	}
}

// New creates a Server for ctrl. Options are applied in order, so WithLogger
// should come before WithTLS.
func New(cfg *config.Config, ctrl *controller.Controller, board *status.Board, opts ...Option) (*Server, error) {
	if cfg == nil || ctrl == nil || board == nil {
		return nil, errors.New("server: config, controller and board are required")
	}
	s := &Server{
		addr:   defaultListenAddr,
		config: cfg,
		logger: slog.Default(),
		ctrl:   ctrl,
		board:  board,
	}
	if cfg.Server.Listen != "" {
		s.addr = cfg.Server.Listen
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Config returns the active configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

// Snapshot returns the controller's last published snapshot.
func (s *Server) Snapshot() controller.Snapshot {
	return s.ctrl.Snapshot()
}

// State returns the robot state as of the last tick.
func (s *Server) State() robot.State {
	return s.ctrl.State()
}

// Board returns the status board.
func (s *Server) Board() *status.Board {
	return s.board
}

// Schedules returns the schedule statuses, or nil if no cron is configured.
func (s *Server) Schedules() []cron.Status {
	if s.cron == nil {
		return nil
	}
	return s.cron.Statuses()
}

// NextRun returns the next scheduled run time, or nil if nothing is scheduled.
func (s *Server) NextRun() *time.Time {
	if s.cron == nil {
		return nil
	}
	next := s.cron.NextRun()
	if next.IsZero() {
		return nil
	}
	return &next
}

// Fire runs the named schedule now.
func (s *Server) Fire(name string) (cron.Status, error) {
	if s.cron == nil {
		return cron.Status{}, fmt.Errorf("%w: %q", cron.ErrUnknownSchedule, name)
	}
	return s.cron.Fire(name)
}

// Logs returns the captured logs for the action with the given tag.
func (s *Server) Logs(tag action.Tag) ([]logging.LogEntry, bool) {
	if s.logs == nil {
		return nil, false
	}
	return s.logs.Logs(tag)
}

// WorldObjects returns a copy of the world model, or nothing when no world
// is attached.
func (s *Server) WorldObjects() ([]robot.Object, error) {
	if s.world == nil {
		return nil, nil
	}
	return s.world.Snapshot()
}

// Submit queues a routine request on the controller.
func (s *Server) Submit(req controller.Request) (string, error) {
	return s.ctrl.Submit(req)
}

// Cancel cancels actions of type t in slot.
func (s *Server) Cancel(slot queue.SlotHandle, t action.Type) {
	s.ctrl.Cancel(slot, t)
}

// CancelTag cancels the action with the given tag.
func (s *Server) CancelTag(tag action.Tag) {
	s.ctrl.CancelTag(tag)
}

// History returns the completion history, newest first.
func (s *Server) History() []controller.Record {
	return s.ctrl.History()
}

// Routines returns the controller's routine catalog.
func (s *Server) Routines() controller.Routines {
	return s.ctrl.Routines()
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a cron manager is configured, it is started first.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
	if s.certs != nil {
		httpServer.TLSConfig = s.certs.TLSConfig()
	}

	if s.cron != nil {
		s.logger.Info("starting schedules", "count", len(s.cron.Statuses()))
		s.cron.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.addr, "tls", s.certs != nil)
		var err error
		if s.certs != nil {
			// The certificate comes from TLSConfig.GetCertificate.
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /api/status", handlers.NewAPIStatusHandler(s))
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /api/actions", handlers.NewActionsHandler(s))
	mux.Handle("POST /api/cancel", handlers.NewCancelHandler(s))
	mux.Handle("GET /api/history", handlers.NewHistoryHandler(s))
	mux.Handle("GET /api/actions/{tag}/logs", handlers.NewActionLogsHandler(s))
	mux.Handle("GET /api/routines", handlers.NewRoutinesHandler(s))
	mux.Handle("GET /api/world", handlers.NewWorldHandler(s))
	mux.Handle("POST /api/schedules/{name}/run", handlers.NewFireScheduleHandler(s))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}
