// Package server exposes the story workflow over HTTP: story generation,
// thread inspection, health, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"starlit/pkg/config"
	"starlit/pkg/logx"
	"starlit/pkg/metrics"
	"starlit/pkg/state"
	"starlit/pkg/version"
	"starlit/pkg/workflow"
)

// MaxRequestBytes bounds the request body size.
const MaxRequestBytes = 64 * 1024

// examplePrompts are the starter requests shown to first-time users.
//
//nolint:gochecknoglobals // static content
var examplePrompts = []string{
	"Tell me a story about a brave little mouse",
	"I want to hear about a friendly dragon who loves to bake",
	"Create a story about a curious star exploring the night sky",
	"Tell me about a magical forest where animals can talk",
	"Story about a kind mermaid who helps lost sailors",
}

// StoryRequest is the body of POST /v1/story.
type StoryRequest struct {
	UserInput  string `json:"user_input"`
	LengthTier string `json:"length_tier"`
	ThreadID   string `json:"thread_id"`
}

// StoryResponse is the body returned by POST /v1/story.
type StoryResponse struct {
	Success  bool   `json:"success"`
	Story    string `json:"story"`
	Title    string `json:"title"`
	Moral    string `json:"moral"`
	Document string `json:"document,omitempty"`
	Error    string `json:"error"`
	ThreadID string `json:"thread_id"`
}

// Server is the HTTP front end over the workflow engine.
type Server struct {
	engine  *workflow.Engine
	store   state.Store
	cfg     *config.Config
	usage   *metrics.QueryService // nil when no Prometheus URL is configured
	logger  *logx.Logger
}

// New creates the HTTP server. usage may be nil; the usage endpoint then
// reports it as unavailable.
func New(engine *workflow.Engine, store state.Store, cfg *config.Config, usage *metrics.QueryService) *Server {
	return &Server{
		engine: engine,
		store:  store,
		cfg:    cfg,
		usage:  usage,
		logger: logx.NewLogger("server"),
	}
}

// RegisterRoutes sets up the HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/story", s.handleStory)
	mux.HandleFunc("/v1/examples", s.handleExamples)
	mux.HandleFunc("/v1/threads", s.handleThreads)
	mux.HandleFunc("/v1/threads/", s.handleThread)
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the fully routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:contextcheck // Parent context is cancelled; shutdown needs a fresh one
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "starlit",
		"version": version.Version,
	})
}

// handleStory implements POST /v1/story: one conversational turn.
func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StoryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, StoryResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		s.writeJSON(w, http.StatusBadRequest, StoryResponse{Error: "user_input is required", ThreadID: req.ThreadID})
		return
	}

	result, err := s.engine.RunTurn(r.Context(), req.ThreadID, req.UserInput, req.LengthTier)
	if err != nil {
		s.logger.Error("Turn failed for thread %s: %v", result.ThreadID, err)
		s.writeJSON(w, http.StatusInternalServerError, StoryResponse{
			Error:    result.Error,
			ThreadID: result.ThreadID,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, StoryResponse{
		Success:  result.Success,
		Story:    result.Story,
		Title:    result.Title,
		Moral:    result.Moral,
		Document: result.Document,
		Error:    result.Error,
		ThreadID: result.ThreadID,
	})
}

func (s *Server) handleExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]string{"examples": examplePrompts})
}

// handleThreads implements GET /v1/threads: the known conversation threads.
func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threads, err := s.store.ListThreads()
	if err != nil {
		s.logger.Error("Failed to list threads: %v", err)
		http.Error(w, "Failed to list threads", http.StatusInternalServerError)
		return
	}
	if threads == nil {
		threads = []string{}
	}

	s.writeJSON(w, http.StatusOK, map[string][]string{"threads": threads})
}

// handleThread routes /v1/threads/{id} and /v1/threads/{id}/usage.
func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/threads/")
	threadID, sub, _ := strings.Cut(rest, "/")
	if threadID == "" {
		http.NotFound(w, r)
		return
	}

	switch sub {
	case "":
		s.handleThreadState(w, r, threadID)
	case "usage":
		s.handleThreadUsage(w, r, threadID)
	default:
		http.NotFound(w, r)
	}
}

// handleThreadState implements GET/DELETE /v1/threads/{id}.
func (s *Server) handleThreadState(w http.ResponseWriter, r *http.Request, threadID string) {
	switch r.Method {
	case http.MethodGet:
		st, found, err := s.store.Load(threadID)
		if err != nil {
			s.logger.Error("Failed to load thread %s: %v", threadID, err)
			http.Error(w, "Failed to load thread", http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "Thread not found", http.StatusNotFound)
			return
		}
		s.writeJSON(w, http.StatusOK, st)

	case http.MethodDelete:
		if err := s.store.Delete(threadID); err != nil {
			s.logger.Error("Failed to delete thread %s: %v", threadID, err)
			http.Error(w, "Failed to delete thread", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleThreadUsage implements GET /v1/threads/{id}/usage, backed by the
// Prometheus query service. ?by=stage breaks the totals down per stage.
func (s *Server) handleThreadUsage(w http.ResponseWriter, r *http.Request, threadID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.usage == nil {
		http.Error(w, "Usage metrics not configured", http.StatusServiceUnavailable)
		return
	}

	switch by := r.URL.Query().Get("by"); by {
	case "":
		usage, err := s.usage.GetThreadMetrics(r.Context(), threadID)
		if err != nil {
			s.logger.Error("Failed to query usage for thread %s: %v", threadID, err)
			http.Error(w, "Failed to query usage", http.StatusBadGateway)
			return
		}
		s.writeJSON(w, http.StatusOK, usage)
	case "stage":
		usage, err := s.usage.GetThreadMetricsByStage(r.Context(), threadID)
		if err != nil {
			s.logger.Error("Failed to query per-stage usage for thread %s: %v", threadID, err)
			http.Error(w, "Failed to query usage", http.StatusBadGateway)
			return
		}
		s.writeJSON(w, http.StatusOK, usage)
	default:
		http.Error(w, fmt.Sprintf("Unknown usage breakdown %q", by), http.StatusBadRequest)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}
