// Package server exposes the availability rules over HTTP using the
// JSON-RPC envelope of package rpc.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saaskit/signupcheck/internal/config"
	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/plan"
	"github.com/saaskit/signupcheck/internal/rpc"
)

// maxBodyBytes caps request bodies. A check envelope is well under 1 KiB.
const maxBodyBytes = 64 << 10

// Service is the availability logic the server exposes.
// *availability.Service implements it.
type Service interface {
	CheckPort(ctx context.Context, raw string) (model.ValidationResult, error)
	CheckSubdomain(ctx context.Context, raw string) (model.ValidationResult, error)
	AllocatePort(ctx context.Context) (int, error)
}

// Server is the HTTP check server.
type Server struct {
	cfg      config.ServerConfig
	svc      Service
	plans    []model.Plan
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *Metrics
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPlans sets the plans served on PathPlans.
func WithPlans(plans []model.Plan) Option {
	return func(s *Server) { s.plans = plans }
}

// WithRegistry registers the server metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.metrics = NewMetrics(reg)
		}
	}
}

// New creates a Server and builds its routes.
func New(svc Service, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.logger = s.logger.With(slog.String("component", "server"))
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(StructuredLogger(s.logger))
	r.Use(Recoverer(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			r.Use(NewRateLimiter(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, s.logger).Handler)
		}
		r.Post(rpc.PathCheckPort, s.handleCheckPort)
		r.Post(rpc.PathCheckSubdomain, s.handleCheckSubdomain)
		r.Post(rpc.PathAllocatePort, s.handleAllocatePort)
		r.Get(rpc.PathPlans, s.handlePlans)
	})
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "check server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	s.logger.InfoContext(ctx, "shutting down check server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	sel, err := plan.New(s.plans)
	if errors.Is(err, plan.ErrNoPlans) {
		render.JSON(w, r, map[string]any{"plans": []plan.Option{}})
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "invalid plan list", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "invalid plan list"})
		return
	}
	if id := r.URL.Query().Get("selected"); id != "" {
		if err := sel.Select(id); err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
	}
	render.JSON(w, r, map[string]any{"plans": sel.Options()})
}

func (s *Server) handleCheckPort(w http.ResponseWriter, r *http.Request) {
	var params rpc.PortParams
	req, ok := s.readCall(w, r, &params)
	if !ok {
		s.metrics.observe(model.KindPort, resultInvalid)
		return
	}
	res, err := s.svc.CheckPort(r.Context(), params.Port.String())
	s.replyCheck(w, r, req, model.KindPort, res, err)
}

func (s *Server) handleCheckSubdomain(w http.ResponseWriter, r *http.Request) {
	var params rpc.SubdomainParams
	req, ok := s.readCall(w, r, &params)
	if !ok {
		s.metrics.observe(model.KindSubdomain, resultInvalid)
		return
	}
	res, err := s.svc.CheckSubdomain(r.Context(), params.Subdomain)
	s.replyCheck(w, r, req, model.KindSubdomain, res, err)
}

func (s *Server) handleAllocatePort(w http.ResponseWriter, r *http.Request) {
	var params struct{}
	req, ok := s.readCall(w, r, &params)
	if !ok {
		return
	}
	p, err := s.svc.AllocatePort(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "port allocation failed", slog.String("error", err.Error()))
		writeError(w, r, req.ID, rpc.NewError(rpc.CodeInternalError, "no free tenant port"))
		return
	}
	writeResult(w, r, req.ID, rpc.AllocateResult{Port: p})
}

// readCall decodes and validates the envelope, then decodes its params into
// params. On failure the error reply is already written.
func (s *Server) readCall(w http.ResponseWriter, r *http.Request, params any) (rpc.Request, bool) {
	var req rpc.Request
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := render.DecodeJSON(body, &req); err != nil {
		writeError(w, r, nil, rpc.NewError(rpc.CodeParseError, err.Error()))
		return req, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, req.ID, rpc.NewError(rpc.CodeInvalidRequest, err.Error()))
		return req, false
	}

	raw := req.Params
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(params); err != nil {
		writeError(w, r, req.ID, rpc.NewError(rpc.CodeInvalidParams, err.Error()))
		return req, false
	}
	return req, true
}

func (s *Server) replyCheck(w http.ResponseWriter, r *http.Request, req rpc.Request, kind model.Kind, res model.ValidationResult, err error) {
	if err != nil {
		s.metrics.observe(kind, resultError)
		s.logger.ErrorContext(r.Context(), "availability check failed",
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
		writeError(w, r, req.ID, rpc.NewError(rpc.CodeInternalError, ""))
		return
	}
	if res.Available {
		s.metrics.observe(kind, resultAvailable)
	} else {
		s.metrics.observe(kind, resultUnavailable)
	}
	writeResult(w, r, req.ID, res)
}

func writeResult(w http.ResponseWriter, r *http.Request, id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeError(w, r, id, rpc.NewError(rpc.CodeInternalError, ""))
		return
	}
	render.JSON(w, r, rpc.Response{JSONRPC: rpc.Version, ID: id, Result: data})
}

func writeError(w http.ResponseWriter, r *http.Request, id json.RawMessage, e *rpc.Error) {
	render.JSON(w, r, rpc.Response{JSONRPC: rpc.Version, ID: id, Error: e})
}
