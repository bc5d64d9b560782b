// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mockapi is a local stand-in for the search backend. It serves the
// five client endpoints from a Fixture, including a scripted research
// stream, so the client can be exercised without the real service.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Server answers the client endpoints from a Fixture.
type Server struct {
	fx     Fixture
	logger *slog.Logger

	mu           sync.Mutex
	calls        map[string]int
	lastSearch   types.SearchRequest
	lastResearch types.ResearchRequest
	lastFollowUp types.FollowUpRequest
}

// New returns a Server for fx.
func New(fx Fixture, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{fx: fx, logger: logger, calls: make(map[string]int)}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Get("/trends", s.handleTrends)
		r.Post("/search", s.handleSearch)
		r.Post("/research", s.handleResearch)
		r.Post("/follow-up", s.handleFollowUp)
	})
	return r
}

// Calls returns how many requests op has received.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// LastSearch returns the body of the most recent search.
func (s *Server) LastSearch() types.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSearch
}

// LastResearch returns the body of the most recent research request.
func (s *Server) LastResearch() types.ResearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResearch
}

// LastFollowUp returns the body of the most recent follow-up.
func (s *Server) LastFollowUp() types.FollowUpRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFollowUp
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// begin counts the call and reports whether the fixture forces op to fail,
// in which case the failure has been written.
func (s *Server) begin(w http.ResponseWriter, op string) bool {
	s.mu.Lock()
	s.calls[op]++
	status := s.fx.Fail[op]
	s.mu.Unlock()

	if status == 0 {
		return false
	}
	if s.fx.FailDetail == "" {
		writeJSON(w, status, map[string]string{"error": "forced failure"})
	} else {
		writeDetail(w, status, s.fx.FailDetail)
	}
	return true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, "stats") {
		return
	}
	total := s.fx.TotalPosts
	if r.URL.Query().Get("ai_only") == "true" {
		total /= 4
	}
	if r.URL.Query().Get("sg_only") == "true" {
		total /= 3
	}
	writeJSON(w, http.StatusOK, types.Stats{TotalPosts: total})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, "trends") {
		return
	}
	writeJSON(w, http.StatusOK, types.TrendsResponse{Data: s.fx.Trends})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, "search") {
		return
	}
	var req types.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	s.lastSearch = req
	s.mu.Unlock()

	if strings.TrimSpace(req.Query) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Query must not be empty")
		return
	}

	var results []types.Result
	for _, res := range s.fx.Results {
		if res.Similarity < req.Threshold {
			continue
		}
		if req.AIOnly && !res.HasExplanation() {
			continue
		}
		results = append(results, res)
		if req.Limit > 0 && len(results) == req.Limit {
			break
		}
	}

	resp := types.SearchResponse{Results: results}
	if resp.Results == nil {
		resp.Results = []types.Result{}
	}
	if len(results) < 5 {
		resp.Suggestion = s.fx.Suggestion
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, "research") {
		return
	}
	var req types.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	s.lastResearch = req
	s.mu.Unlock()

	if req.SessionID == "" {
		writeDetail(w, http.StatusBadRequest, "session_id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, payload := range s.fx.Stream {
		select {
		case <-r.Context().Done():
			s.logger.Debug("research client went away", "session", req.SessionID)
			return
		default:
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
		if s.fx.EventDelay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.fx.EventDelay):
			}
		}
	}
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	if s.begin(w, "follow_up") {
		return
	}
	var req types.FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	s.lastFollowUp = req
	s.mu.Unlock()

	if strings.TrimSpace(req.Context) == "" {
		writeDetail(w, http.StatusBadRequest, "Missing research context")
		return
	}
	writeJSON(w, http.StatusOK, types.FollowUpResponse{Answer: s.fx.Answer})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
