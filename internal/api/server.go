// Package api serves the engine to the local web UI as JSON over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/engine"
	"github.com/julianstephens/daylog/internal/logger"
)

// Server owns an engine and serializes every call into it. Handlers run on
// many goroutines; the engine expects one caller at a time.
type Server struct {
	mu  sync.Mutex
	eng *engine.Engine
}

func NewServer(eng *engine.Engine) *Server {
	return &Server{eng: eng}
}

// with runs fn while holding the engine
func (s *Server) with(fn func(*engine.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.eng)
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(LocalCORS)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Get("/health", s.health)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/start", s.startSession)
		r.Post("/pause", s.pauseSession)
		r.Post("/resume", s.resumeSession)
		r.Post("/stop", s.stopSession)
	})

	r.Route("/breaks", func(r chi.Router) {
		r.Post("/", s.scheduleBreak)
		r.Delete("/", s.cancelBreak)
		r.Post("/resume", s.resumeEarly)
	})

	r.Get("/days/{date}", s.getDay)
	r.Get("/weeks/{date}", s.getWeek)
	r.Get("/timeline/{date}", s.getTimeline)
	r.Get("/summary", s.getSummary)

	return r
}

// Tick advances the break countdown once
func (s *Server) Tick() {
	s.with(func(eng *engine.Engine) {
		if _, err := eng.Tick(); err != nil {
			logger.Error("Tick failed", "error", err)
		}
	})
}

// Run serves on addr and ticks the engine every second until ctx ends.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("daylog API starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ticker := time.NewTicker(constants.Tick)
	defer ticker.Stop()
	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			logger.Info("shutting down API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}
