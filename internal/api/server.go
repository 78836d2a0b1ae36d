// Package api exposes the timer over HTTP and streams its lifecycle events
// over a websocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cadence/internal/bus"
	"cadence/internal/core/model"
	"cadence/internal/core/phase"
	"cadence/internal/core/timer"
	"cadence/internal/module"
)

// ModuleName is the name the API binds its bus under.
const ModuleName = "API"

const shutdownTimeout = 5 * time.Second

// Controller is the timer surface the API drives.
type Controller interface {
	Start()
	Skip()
	Stop()
	Running() bool
	Phases() []phase.Snapshot
	CurrentPhase() phase.Snapshot
	CurrentIndex() int
	SetCurrentPhase(index int) error
	TickDuration() time.Duration
	SetTickDuration(duration time.Duration) error
}

// Options configures the API server.
type Options struct {
	Controller Controller
	// Gatherer serves /metrics. Nil means prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server routes HTTP requests to the timer.
type Server struct {
	base       *module.Base
	logger     zerolog.Logger
	controller Controller
	router     *chi.Mux
	hub        *Hub
	upgrader   websocket.Upgrader
}

// NewFactory returns the module factory for the API.
func NewFactory(registry *bus.Registry, opts Options) *module.Factory[*Server] {
	return module.NewFactory(registry, ModuleName, func(base *module.Base) (*Server, error) {
		return New(base, opts)
	})
}

// New builds the router and forwards lifecycle events to websocket clients.
func New(base *module.Base, opts Options) (*Server, error) {
	if opts.Controller == nil {
		return nil, fmt.Errorf("api: controller is required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		base:       base,
		logger:     base.Logger(),
		controller: opts.Controller,
		router:     chi.NewRouter(),
		hub:        NewHub(base.Logger()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.routes(opts.Gatherer)

	for _, event := range timer.LifecycleEvents {
		base.On(event, "api.events", s.forward(event))
	}
	return s, nil
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/phases", s.handlePhases)
	s.router.Get("/phase", s.handleStatus)
	s.router.Put("/phase/{index}", s.handleSetPhase)
	s.router.Post("/start", s.handleStart)
	s.router.Post("/skip", s.handleSkip)
	s.router.Post("/stop", s.handleStop)
	s.router.Put("/tick-duration", s.handleTickDuration)
	s.router.Get("/stats", s.handleStats)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router.Get("/events", s.handleEvents)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("api listening")
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.Status()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) forward(event string) bus.Listener {
	return func(args ...any) {
		payload, ok := timer.PayloadFrom(args)
		if !ok {
			return
		}
		s.hub.Broadcast(Message{
			Type:      event,
			Timestamp: payload.At,
			Data:      newEventView(event, payload),
		})
	}
}

func (s *Server) status() StatusView {
	return StatusView{
		Index:   s.controller.CurrentIndex(),
		Running: s.controller.Running(),
		TickMs:  s.controller.TickDuration().Milliseconds(),
		Phase:   newPhaseView(s.controller.CurrentPhase()),
	}
}

func (s *Server) handlePhases(w http.ResponseWriter, _ *http.Request) {
	snapshots := s.controller.Phases()
	views := make([]PhaseView, 0, len(snapshots))
	for _, snapshot := range snapshots {
		views = append(views, newPhaseView(snapshot))
	}
	ok(w, views)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	ok(w, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.controller.Start()
	ok(w, s.status())
}

func (s *Server) handleSkip(w http.ResponseWriter, _ *http.Request) {
	s.controller.Skip()
	ok(w, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.controller.Stop()
	ok(w, s.status())
}

func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, "phase index must be an integer", err)
		return
	}
	if err := s.controller.SetCurrentPhase(index); err != nil {
		if errors.Is(err, timer.ErrPhaseIndex) {
			fail(w, http.StatusNotFound, "NOT_FOUND", "no such phase", err.Error())
			return
		}
		badRequest(w, "cannot select phase", err)
		return
	}
	ok(w, s.status())
}

type tickRequest struct {
	Duration string `json:"duration"`
}

func (s *Server) handleTickDuration(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body", err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		badRequest(w, "invalid duration", err)
		return
	}
	if err := s.controller.SetTickDuration(duration); err != nil {
		badRequest(w, "cannot set tick duration", err)
		return
	}
	ok(w, s.status())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	answers := s.base.Get(model.StatsSummary)
	for _, answer := range answers {
		if answer != nil {
			ok(w, answer)
			return
		}
	}
	fail(w, http.StatusServiceUnavailable, "UNAVAILABLE", "no stats collector running", "")
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.serve(conn)
}
