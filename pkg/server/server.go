// Package server exposes the demo's HTTP endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rundemo/rundemo/pkg/chat"
	"github.com/rundemo/rundemo/pkg/config"
	"github.com/rundemo/rundemo/pkg/models"
	"github.com/rundemo/rundemo/pkg/secretcache"
	"github.com/rundemo/rundemo/pkg/telemetry"
	"github.com/rundemo/rundemo/pkg/tracker"
	"github.com/rundemo/rundemo/pkg/ui"
)

// SecretStore reads and creates secrets.
type SecretStore interface {
	Project() string
	Access(ctx context.Context, name string) (models.SecretVersion, error)
	Create(ctx context.Context, name, value string) (models.SecretCreated, error)
}

// Completer produces a chat completion for one user message.
type Completer interface {
	Complete(ctx context.Context, apiKey, message string) (*chat.Reply, error)
}

// KeyCache holds the completion API key between requests.
type KeyCache interface {
	GetOrFetch(ctx context.Context, fetch secretcache.FetchFunc) (string, error)
	Stats() models.CacheStats
}

// InfoReporter describes the running instance.
type InfoReporter interface {
	Snapshot() models.InfoSnapshot
}

// StressRunner executes the synthetic CPU workload.
type StressRunner interface {
	Run(iterations int) models.StressResult
}

// Deps are the components the handlers delegate to. Tracker and Instruments
// are optional.
type Deps struct {
	Secrets     SecretStore
	Chat        Completer
	Keys        KeyCache
	Info        InfoReporter
	Stress      StressRunner
	Tracker     tracker.Tracker
	Instruments *telemetry.Instruments
	Logger      zerolog.Logger
}

// Server is the demo HTTP server.
type Server struct {
	cfg     *config.Config
	secrets SecretStore
	chat    Completer
	keys    KeyCache
	info    InfoReporter
	stress  StressRunner
	tracker tracker.Tracker
	metrics *telemetry.Instruments
	logger  zerolog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server wired with all dependencies.
func New(cfg *config.Config, d Deps) (*Server, error) {
	in := d.Instruments
	if in == nil {
		var err error
		if in, err = telemetry.NewInstruments(nil); err != nil {
			return nil, err
		}
	}

	s := &Server{
		cfg:     cfg,
		secrets: d.Secrets,
		chat:    d.Chat,
		keys:    d.Keys,
		info:    d.Info,
		stress:  d.Stress,
		tracker: d.Tracker,
		metrics: in,
		logger:  d.Logger.With().Str("component", "server").Logger(),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /info", s.handleInfo)
	s.mux.HandleFunc("GET /secrets", s.handleGetSecret)
	s.mux.HandleFunc("POST /secrets", s.handleCreateSecret)
	s.mux.HandleFunc("POST /stress", s.handleStress)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /usage", s.handleUsage)
	s.mux.Handle("GET /", newPageHandler(ui.FS()))

	// request id -> tracing -> access log -> recovery -> mux
	var h http.Handler = s.mux
	h = recoveryMiddleware(s.logger, h)
	h = loggingMiddleware(s.logger, h)
	h = tracingMiddleware(in, h)
	h = requestIDMiddleware(h)
	s.handler = h

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Listen).Msg("rundemo listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func orLocal(v string) string {
	if v == "" {
		return "local"
	}
	return v
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
