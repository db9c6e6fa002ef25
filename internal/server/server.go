// Package server exposes the matching engine and run history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-match/internal/customers"
	"github.com/sells-group/prospect-match/internal/model"
	"github.com/sells-group/prospect-match/internal/refine"
	"github.com/sells-group/prospect-match/internal/store"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 10 << 20

// Matcher runs one search.
type Matcher interface {
	Run(ctx context.Context, req refine.Request) *model.MatchResult
}

// Options configure a Server.
type Options struct {
	// Pool is the default customer pool used when a request carries none.
	Pool           []model.CustomerRecord
	UseAI          bool
	AllowedOrigins []string
	// Store enables run history; nil disables saving and the /v1/runs routes
	// answer 503.
	Store store.Store
}

// Server is the HTTP API.
type Server struct {
	matcher Matcher
	opts    Options
	router  chi.Router
}

// New builds the router.
func New(m Matcher, opts Options) *Server {
	s := &Server{matcher: m, opts: opts}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", s.match)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/patterns", s.listPatterns)
	})

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// matchRequest is the body of POST /v1/match. Customers and CustomersCSV
// replace the default pool; CustomersCSV is parsed like an uploaded file.
type matchRequest struct {
	Description  string                 `json:"description"`
	Customers    []model.CustomerRecord `json:"customers,omitempty"`
	CustomersCSV string                 `json:"customers_csv,omitempty"`
	UseAI        *bool                  `json:"use_ai,omitempty"`
	Save         bool                   `json:"save,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"customers": len(s.opts.Pool),
		"store":     s.opts.Store != nil,
	})
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	pool := s.opts.Pool
	switch {
	case strings.TrimSpace(req.CustomersCSV) != "":
		parsed, err := customers.Parse(r.Context(), strings.NewReader(req.CustomersCSV))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		pool = parsed
	case len(req.Customers) > 0:
		pool = req.Customers
	}

	useAI := s.opts.UseAI
	if req.UseAI != nil {
		useAI = *req.UseAI
	}

	res := s.matcher.Run(r.Context(), refine.Request{
		Description: req.Description,
		Pool:        pool,
		UseAI:       useAI,
		Sink: func(ev model.StatusEvent) {
			zap.L().Debug("server: match progress",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("stage", string(ev.Stage)),
				zap.Float64("progress", ev.Progress),
			)
		},
	})

	if req.Save {
		if s.opts.Store == nil {
			writeError(w, http.StatusServiceUnavailable, "run history is disabled")
			return
		}
		run := store.NewRun(req.Description, len(pool), useAI, res)
		if err := s.opts.Store.SaveRun(r.Context(), &run); err != nil {
			zap.L().Error("server: save run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save run")
			return
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Limit:  intParam(q.Get("limit"), store.DefaultListLimit),
		Offset: intParam(q.Get("offset"), 0),
	}
	if v, err := strconv.ParseFloat(q.Get("min_score"), 64); err == nil {
		filter.MinScore = v
	}

	runs, err := s.opts.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.opts.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("server: get run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listPatterns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	patterns, err := s.opts.Store.ListPatterns(r.Context(), intParam(r.URL.Query().Get("limit"), store.DefaultPatternLimit))
	if err != nil {
		zap.L().Error("server: list patterns failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list patterns")
		return
	}
	if patterns == nil {
		patterns = []model.LearnedPattern{}
	}
	writeJSON(w, http.StatusOK, patterns)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return false
	}
	return true
}

func intParam(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("size", ww.BytesWritten()),
			zap.Duration("dur", time.Since(start)),
		)
	})
}
