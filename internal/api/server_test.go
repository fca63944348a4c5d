package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

func setupStore(t *testing.T) (*db.DB, string) {
	t.Helper()
	store, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	run, err := store.CreateRun(ctx, "final.jsonl", "")
	require.NoError(t, err)
	require.NoError(t, store.InsertPassEvent(ctx, run.RunID, pitch.PassEvent{From: pitch.Home, To: pitch.Away, FrameIndex: 88, PlayerID: 14}))
	require.NoError(t, store.CompleteRun(ctx, run.RunID, liveSummary()))
	return store, run.RunID
}

func liveSummary() match.Summary {
	return match.Summary{
		TotalFrames:     250,
		PossessedFrames: 200,
		TotalPasses:     1,
		Teams: []match.TeamSummary{
			{Team: pitch.Home, Name: "Home", Abbreviation: "HOM", PossessionFrames: 120, PossessionPercent: 60, PossessionTime: "00:04", Passes: 1},
			{Team: pitch.Away, Name: "Away", Abbreviation: "AWY", PossessionFrames: 80, PossessionPercent: 40, PossessionTime: "00:03"},
		},
		Passes: []pitch.PassEvent{{From: pitch.Home, To: pitch.Away, FrameIndex: 88, PlayerID: 14}},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListRuns(t *testing.T) {
	store, runID := setupStore(t)
	mux := NewServer(store, nil).ServeMux()

	rec := get(t, mux, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var runs []runResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, db.RunCompleted, runs[0].Status)
	assert.Equal(t, int64(250), runs[0].TotalFrames)

	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/runs?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, mux, "/runs?limit=0").Code)
}

func TestShowRun(t *testing.T) {
	store, runID := setupStore(t)
	mux := NewServer(store, nil).ServeMux()

	rec := get(t, mux, "/runs/"+runID)
	require.Equal(t, http.StatusOK, rec.Code)
	var run runResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	require.Len(t, run.Teams, 2)
	assert.Equal(t, "home", run.Teams[0].Team)
	assert.Equal(t, 60.0, run.Teams[0].PossessionPercent)
	assert.NotNil(t, run.CompletedAt)

	rec = get(t, mux, "/runs/"+runID+"/passes")
	require.Equal(t, http.StatusOK, rec.Code)
	var passes []passResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&passes))
	assert.Equal(t, []passResponse{{From: "home", To: "away", FrameIndex: 88, PlayerID: 14}}, passes)

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/runs/does-not-exist").Code)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/runs/"+runID+"/frames").Code)
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/runs/").Code)
}

func TestLive(t *testing.T) {
	started := false
	live := func() (match.Summary, bool) {
		if !started {
			return match.Summary{}, false
		}
		return liveSummary(), true
	}
	mux := NewServer(nil, live).ServeMux()

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/live").Code)

	started = true
	rec := get(t, mux, "/live")
	require.Equal(t, http.StatusOK, rec.Code)
	var s summaryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&s))
	assert.Equal(t, int64(200), s.PossessedFrames)
	assert.Equal(t, 1, s.TotalPasses)
	require.Len(t, s.Teams, 2)
	assert.Equal(t, "AWY", s.Teams[1].Abbreviation)
	require.Len(t, s.Passes, 1)
	assert.Equal(t, "away", s.Passes[0].To)
}

func TestNilCollaborators(t *testing.T) {
	mux := NewServer(nil, nil).ServeMux()
	for _, path := range []string{"/live", "/runs", "/runs/abc"} {
		assert.Equal(t, http.StatusNotFound, get(t, mux, path).Code, path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := NewServer(nil, nil).ServeMux()
	for _, path := range []string{"/live", "/runs", "/runs/abc"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := get(t, h, "/anything")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, statusCodeColor(http.StatusTeapot), "418")
}
