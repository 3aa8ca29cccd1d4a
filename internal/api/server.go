// Package api exposes the HTTP interface for the gazette ETL service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sheriffdata/gazette-etl/internal/auction"
	"github.com/sheriffdata/gazette-etl/internal/config"
	"github.com/sheriffdata/gazette-etl/internal/runner"
	"github.com/sheriffdata/gazette-etl/internal/source/webintake"
)

// Server wires HTTP handlers to the run queue and stores.
type Server struct {
	router    chi.Router
	queue     auction.RunQueue
	store     *runner.RunStore
	source    auction.DocumentSource
	idGen     auction.IDGenerator
	clock     auction.Clock
	cfg       config.Config
	validate  *validator.Validate
	discovery *webintake.Discovery
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	queue auction.RunQueue,
	store *runner.RunStore,
	source auction.DocumentSource,
	idGen auction.IDGenerator,
	clock auction.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:    queue,
		store:    store,
		source:   source,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
	if cfg.Intake.ListingURL != "" {
		discovery, err := webintake.New(webintake.Config{IndexURL: cfg.Intake.ListingURL}, logger.Named("webintake"))
		if err != nil {
			logger.Warn("intake discovery init failed", zap.Error(err))
		} else {
			s.discovery = discovery
		}
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// The webhook authenticates with its own shared secret, not the API key.
		r.Post("/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			if cfg.Auth.Enabled {
				r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
			}
			r.Post("/runs", s.submitRun)
			r.Get("/runs/{run_id}", s.getRun)
			r.Get("/pending", s.listPending)
			r.Get("/discover", s.discoverDocuments)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The queue and store are in-process; readiness tracks the document source.
	if _, err := s.source.ListPending(r.Context()); err != nil {
		writeError(s.logger, w, http.StatusServiceUnavailable, "document source unavailable")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type webhookRequest struct {
	Secret   string   `json:"secret" validate:"required"`
	PDFFiles []string `json:"pdf_files" validate:"required,min=1,dive,required"`
}

// handleWebhook accepts a notification that new gazettes landed in intake
// and enqueues one run per document.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	if s.cfg.Webhook.Secret == "" || req.Secret != s.cfg.Webhook.Secret {
		writeError(s.logger, w, http.StatusForbidden, "invalid webhook secret")
		return
	}

	runIDs := make(map[string]string, len(req.PDFFiles))
	for _, documentKey := range req.PDFFiles {
		runID, err := s.enqueueRun(r.Context(), documentKey)
		if err != nil {
			writeError(s.logger, w, http.StatusInternalServerError, err.Error())
			return
		}
		runIDs[documentKey] = runID
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]any{"runs": runIDs})
}

type runRequest struct {
	DocumentKey string `json:"document_key" validate:"required"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
		return
	}
	runID, err := s.enqueueRun(r.Context(), req.DocumentKey)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(s.logger, w, status, err.Error())
		return
	}
	writeJSON(s.logger, w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	report, err := s.store.Get(r.Context(), runID)
	if err != nil {
		writeError(s.logger, w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"run": report})
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	keys, err := s.source.ListPending(r.Context())
	if err != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to list pending documents")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"pending": keys})
}

// discoverDocuments scrapes the configured gazette index page and returns
// every linked PDF with its derived intake key.
func (s *Server) discoverDocuments(w http.ResponseWriter, _ *http.Request) {
	if s.discovery == nil {
		writeError(s.logger, w, http.StatusNotFound, "intake discovery is not configured")
		return
	}
	links, err := s.discovery.DiscoverPDFs()
	if err != nil {
		writeError(s.logger, w, http.StatusBadGateway, "failed to scrape gazette index")
		return
	}
	type discovered struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	docs := make([]discovered, 0, len(links))
	for _, link := range links {
		key, err := webintake.KeyForURL(link)
		if err != nil {
			continue
		}
		docs = append(docs, discovered{URL: link, Key: key})
	}
	writeJSON(s.logger, w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) enqueueRun(ctx context.Context, documentKey string) (string, error) {
	runID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	now := s.clock.Now()
	report := auction.RunReport{
		RunID:       runID,
		DocumentKey: documentKey,
		Status:      auction.RunStatusQueued,
		StartedAt:   now,
	}
	if err := s.store.Create(ctx, report); err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req := auction.RunRequest{
		RunID:       runID,
		DocumentKey: documentKey,
		Attempt:     1,
		Submitted:   now.Unix(),
	}
	if err := s.queue.Enqueue(queueCtx, req); err != nil {
		return "", fmt.Errorf("enqueue run: %w", err)
	}
	return runID, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(zap.NewNop(), w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
