// Package inspect serves the live tasks of an executor over HTTP.
package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/b97tsk/commander"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Source is what the inspector reads. [commander.Executor] is a Source.
type Source interface {
	TickIndex() uint64
	SummarizeAll() []commander.TaskSummary
	Summarize(seq uint64) (commander.TaskSummary, bool)
}

// Response is the envelope of every reply.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// TaskList is the payload of GET /tasks.
type TaskList struct {
	Tick  uint64      `json:"tick"`
	Tasks []TaskEntry `json:"tasks"`
}

// TaskEntry is one live task.
type TaskEntry struct {
	commander.TaskSummary
	Line string `json:"line"`
}

// An Option adds routes to the inspector.
type Option func(chi.Router)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(r chi.Router) {
		r.Method(http.MethodGet, "/metrics", h)
	}
}

// NewHandler returns the inspector routes:
//
//	GET /healthz
//	GET /tasks
//	GET /tasks/{seq}
func NewHandler(src Source, logger *slog.Logger, opts ...Option) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "inspect")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, map[string]any{
			"status": "healthy",
			"tick":   src.TickIndex(),
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			list := TaskList{Tick: src.TickIndex(), Tasks: []TaskEntry{}}
			for _, s := range src.SummarizeAll() {
				list.Tasks = append(list.Tasks, TaskEntry{TaskSummary: s, Line: s.String()})
			}
			respond(w, r, http.StatusOK, list)
		})
		r.Get("/{seq}", func(w http.ResponseWriter, r *http.Request) {
			seq, err := strconv.ParseUint(chi.URLParam(r, "seq"), 10, 64)
			if err != nil {
				respondError(w, r, http.StatusBadRequest, "task sequence number must be an unsigned integer")
				return
			}
			s, ok := src.Summarize(seq)
			if !ok {
				respondError(w, r, http.StatusNotFound, "no live task #"+strconv.FormatUint(seq, 10))
				return
			}
			respond(w, r, http.StatusOK, TaskEntry{TaskSummary: s, Line: s.String()})
		})
	})

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Response{
		Status:    "ok",
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, Response{
		Status:    "error",
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// requestLogger logs every request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
