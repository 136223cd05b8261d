// Package server exposes the analysis pipeline and corpus over HTTP for the
// presentation layer. The rendering of answers and traces is out of scope
// here; this is a JSON API boundary only.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glia-labs/convoscope/corpus"
	"github.com/glia-labs/convoscope/pipeline"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// defaultQueryTimeout bounds one pipeline invocation end to end. Exceeding
// it is reported as retryable, not a crash.
const defaultQueryTimeout = 3 * time.Minute

// Server wires the HTTP API.
type Server struct {
	pipe    *pipeline.Pipeline
	store   *corpus.Store
	logger  *slog.Logger
	metrics *Metrics
	reg     *prometheus.Registry
	timeout time.Duration
}

// New creates a server. reg may be a fresh registry or the default one.
func New(pipe *pipeline.Pipeline, store *corpus.Store, reg *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		pipe:    pipe,
		store:   store,
		logger:  logger,
		metrics: NewMetrics(reg),
		reg:     reg,
		timeout: defaultQueryTimeout,
	}
}

// Handler returns the route mux:
//
//	POST /api/rag/query
//	GET  /api/conversations/summary
//	GET  /api/conversations/search
//	GET  /api/conversations/recent
//	GET  /api/conversations/{id}
//	GET  /health
//	GET  /metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rag/query", s.handleQuery)
	mux.HandleFunc("GET /api/conversations/summary", s.handleSummary)
	mux.HandleFunc("GET /api/conversations/search", s.handleSearch)
	mux.HandleFunc("GET /api/conversations/recent", s.handleRecent)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleConversation)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	return mux
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer       string          `json:"answer"`
	Model        string          `json:"model"`
	TokensUsed   int             `json:"tokens_used"`
	Retrieved    int             `json:"retrieved"`
	FallbackPlan bool            `json:"fallback_plan"`
	Trace        *pipeline.Trace `json:"trace"`
}

type errorResponse struct {
	Error    string          `json:"error"`
	Category string          `json:"category,omitempty"`
	Trace    *pipeline.Trace `json:"trace,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	start := time.Now()
	outcome, err := s.pipe.Run(ctx, req.Question)
	if err != nil {
		s.metrics.observeRun("error", time.Since(start).Seconds())
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		resp := errorResponse{Error: err.Error(), Trace: pipeline.TraceOf(err)}
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			resp.Category = string(pe.Category)
		}
		writeJSON(w, status, resp)
		return
	}

	s.metrics.observeRun("success", time.Since(start).Seconds())
	s.metrics.tokensUsed.Add(float64(outcome.Answer.TokensUsed))
	s.metrics.itemsRetrieved.Observe(float64(outcome.Retrieved))

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:       outcome.Answer.Text,
		Model:        outcome.Answer.Model,
		TokensUsed:   outcome.Answer.TokensUsed,
		Retrieved:    outcome.Retrieved,
		FallbackPlan: outcome.FallbackPlan,
		Trace:        outcome.Trace,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Current().Summary())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q parameter is required"})
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records := s.store.Current().Search(query, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"count":   len(records),
		"results": records,
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "hours must be a positive integer"})
			return
		}
		hours = n
	}

	window := time.Duration(hours) * time.Hour
	records := s.store.Current().Recent(window, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"hours":   hours,
		"count":   len(records),
		"results": records,
	})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	records := s.store.Current().Conversation(id)
	if len(records) == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "conversation not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id,
		"count":           len(records),
		"items":           records,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"corpus_records": snap.Len(),
		"corpus_loaded":  snap.Len() > 0,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
