// Package api serves a read-only JSON view of stored replay runs and of the
// run currently in progress.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/monitoring"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

var logf = monitoring.Prefixed("[api] ")

// ANSI escape codes for the request log.
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// defaultRunLimit caps /runs when no limit is given.
const defaultRunLimit = 50

// LiveFunc reports the statistics of the run in progress. ok is false
// before the first frame has been processed.
type LiveFunc func() (s match.Summary, ok bool)

type Server struct {
	db   *db.DB
	live LiveFunc
}

// NewServer builds a server over the run store. Either argument may be nil;
// the routes that need it then answer 404.
func NewServer(store *db.DB, live LiveFunc) *Server {
	return &Server{db: store, live: live}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", s.showLive)
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/runs/", s.showRun)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) showLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.live == nil {
		writeJSONError(w, http.StatusNotFound, "no run in progress")
		return
	}
	summary, ok := s.live()
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no frames processed yet")
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		writeJSONError(w, http.StatusNotFound, "no run database configured")
		return
	}

	limit := defaultRunLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to list runs")
		logf("failed to list runs: %v", err)
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// showRun serves /runs/{id} and /runs/{id}/passes.
func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.db == nil {
		writeJSONError(w, http.StatusNotFound, "no run database configured")
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/"), "/")
	runID := parts[0]
	if runID == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "passes") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	ctx := r.Context()
	run, err := s.db.GetRun(ctx, runID)
	if errors.Is(err, db.ErrRunNotFound) {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load run")
		logf("failed to load run %s: %v", runID, err)
		return
	}

	if len(parts) == 2 {
		passes, err := s.db.ListPassEvents(ctx, runID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "Failed to load passes")
			logf("failed to load passes for %s: %v", runID, err)
			return
		}
		writeJSON(w, http.StatusOK, passResponses(passes))
		return
	}

	stats, err := s.db.ListTeamStats(ctx, runID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Failed to load team stats")
		logf("failed to load team stats for %s: %v", runID, err)
		return
	}
	resp := toRunResponse(run)
	resp.Teams = make([]teamResponse, 0, len(stats))
	for _, ts := range stats {
		resp.Teams = append(resp.Teams, teamResponse{
			Team:              ts.Team,
			Name:              ts.Name,
			PossessionFrames:  ts.PossessionFrames,
			PossessionPercent: ts.PossessionPercent,
			PossessionTime:    ts.PossessionTime,
			Passes:            ts.Passes,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
