package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/fsutil"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/export"
)

func intPtr(v int) *int { return &v }

// fastTuning settles labels on the first observation and commits
// possession after two frames.
func fastTuning() *config.TuningConfig {
	cfg := config.DefaultTuningConfig()
	cfg.MinHistoryForClassification = intPtr(1)
	cfg.PossessionSwitchStreakFrames = intPtr(2)
	return cfg
}

func bbox(x, y, halfW, halfH float64) string {
	return fmt.Sprintf("[%g, %g, %g, %g]", x-halfW, y-halfH, x+halfW, y+halfH)
}

// matchFeed holds the ball at home player 1 for frames 0-4 and at away
// player 4 for frames 5-9.
func matchFeed() string {
	var b strings.Builder
	for i := 0; i < 10; i++ {
		ballX := 205.0
		if i >= 5 {
			ballX = 1505
		}
		fmt.Fprintf(&b, `{"frame_index": %d, "tracks": [`+
			`{"track_id": 1, "kind": "player", "bbox": %s, "raw_team": "home"}, `+
			`{"track_id": 2, "kind": "player", "bbox": %s, "raw_team": "home"}, `+
			`{"track_id": 3, "kind": "player", "bbox": %s, "raw_team": "home"}, `+
			`{"track_id": 4, "kind": "player", "bbox": %s, "raw_team": "away"}, `+
			`{"track_id": 5, "kind": "player", "bbox": %s, "raw_team": "away"}, `+
			`{"track_id": 6, "kind": "player", "bbox": %s, "raw_team": "away"}, `+
			`{"track_id": 99, "kind": "ball", "bbox": %s}]}`+"\n",
			i,
			bbox(200, 300, 10, 40), bbox(300, 500, 10, 40), bbox(250, 700, 10, 40),
			bbox(1500, 300, 10, 40), bbox(1600, 500, 10, 40), bbox(1550, 700, 10, 40),
			bbox(ballX, 300, 3, 3))
	}
	return b.String()
}

func TestReplay_WritesOutputs(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("data/match.jsonl", []byte(matchFeed()))

	res, err := replay(context.Background(), replayOptions{
		Input:         "data/match.jsonl",
		FS:            mfs,
		Tuning:        fastTuning(),
		ExportPath:    "out/snapshots.txt",
		ReportPath:    "out/report.html",
		FormationPath: "out/formation.png",
		ReportStride:  2,
		Live:          &liveState{},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Frames)
	assert.Empty(t, res.RunID)

	s := res.Summary
	assert.Equal(t, int64(10), s.TotalFrames)
	require.Equal(t, 1, s.TotalPasses)
	assert.Equal(t, pitch.PassEvent{From: pitch.Home, To: pitch.Away, FrameIndex: 6, PlayerID: 4}, s.Passes[0])
	home, ok := s.Team(pitch.Home)
	require.True(t, ok)
	assert.Equal(t, 1, home.Passes)

	data, err := mfs.ReadFile("out/snapshots.txt")
	require.NoError(t, err)
	records, err := export.ReadSnapshots(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 10)
	assert.Equal(t, int64(9), records[9].FrameIndex)

	html, err := mfs.ReadFile("out/report.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "echarts")

	pngData, err := mfs.ReadFile("out/formation.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pngData, []byte("\x89PNG")))
}

func TestReplay_LiveState(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("match.jsonl", []byte(matchFeed()))
	live := &liveState{}

	_, ok := live.get()
	assert.False(t, ok)

	res, err := replay(context.Background(), replayOptions{Input: "match.jsonl", FS: mfs, Tuning: fastTuning(), Live: live})
	require.NoError(t, err)

	got, ok := live.get()
	require.True(t, ok)
	assert.Equal(t, res.Summary.TotalFrames, got.TotalFrames)
	assert.Equal(t, res.Summary.TotalPasses, got.TotalPasses)
}

func TestReplay_PersistsRun(t *testing.T) {
	t.Parallel()

	store, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("match.jsonl", []byte(matchFeed()))

	ctx := context.Background()
	res, err := replay(ctx, replayOptions{Input: "match.jsonl", FS: mfs, Tuning: fastTuning(), Store: store})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := store.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunCompleted, run.Status)
	assert.Equal(t, "match.jsonl", run.Source)
	assert.Equal(t, int64(10), run.TotalFrames)
	assert.Contains(t, run.ConfigJSON, `"possession_switch_streak_frames":2`)

	passes, err := store.ListPassEvents(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Summary.Passes, passes)

	stats, err := store.ListTeamStats(ctx, res.RunID)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 1, stats[0].Passes)
}

func TestReplay_PreconditionAbortsRun(t *testing.T) {
	t.Parallel()

	store, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	lines := strings.SplitAfter(matchFeed(), "\n")
	dup := `{"frame_index": 2, "tracks": [` +
		`{"track_id": 7, "kind": "player", "bbox": [0, 0, 10, 10]}, ` +
		`{"track_id": 7, "kind": "player", "bbox": [50, 0, 60, 10]}]}` + "\n"
	feed := lines[0] + lines[1] + dup + strings.Join(lines[3:], "")

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("bad.jsonl", []byte(feed))

	ctx := context.Background()
	res, err := replay(ctx, replayOptions{Input: "bad.jsonl", FS: mfs, Tuning: fastTuning(), Store: store, ReportPath: "report.html"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pitch.ErrPreconditionViolation))

	var pe *pitch.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, int64(2), pe.FrameIndex)
	assert.Equal(t, 7, pe.TrackID)
	assert.Equal(t, 2, res.Frames, "frames after the violation must not be processed")

	run, err := store.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, db.RunAborted, run.Status)
	assert.Contains(t, run.ErrorMessage, "frame 2")

	_, err = mfs.ReadFile("report.html")
	assert.Error(t, err, "no report on an aborted run")
}

func greyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{128, 128, 128, 255}}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReplay_Images(t *testing.T) {
	t.Parallel()

	frame := `{"frame_index": 0, "image": %q, "tracks": [{"track_id": 1, "kind": "player", "bbox": [10, 5, 30, 45], "raw_team": "home"}]}`

	t.Run("decodes relative to the feed", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.WriteFile("feeds/match.jsonl", []byte(fmt.Sprintf(frame, "frames/0000.png")))
		mfs.WriteFile("feeds/frames/0000.png", greyPNG(t))

		res, err := replay(context.Background(), replayOptions{Input: "feeds/match.jsonl", FS: mfs, Tuning: fastTuning()})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Frames)
		// Grey matches no kit: the image wins over raw_team.
		require.Len(t, res.Last.Players, 1)
		assert.Equal(t, pitch.Unclassified, res.Last.Players[0].Team)
	})

	t.Run("missing image", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.WriteFile("match.jsonl", []byte(fmt.Sprintf(frame, "missing.png")))
		_, err := replay(context.Background(), replayOptions{Input: "match.jsonl", FS: mfs})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read image")
	})

	t.Run("escaping path", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.WriteFile("feeds/match.jsonl", []byte(fmt.Sprintf(frame, "../secret.png")))
		mfs.WriteFile("secret.png", greyPNG(t))
		_, err := replay(context.Background(), replayOptions{Input: "feeds/match.jsonl", FS: mfs})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal")
	})

	t.Run("undecodable image", func(t *testing.T) {
		t.Parallel()
		mfs := fsutil.NewMemoryFileSystem()
		mfs.WriteFile("match.jsonl", []byte(fmt.Sprintf(frame, "f.png")))
		mfs.WriteFile("f.png", []byte("not an image"))
		_, err := replay(context.Background(), replayOptions{Input: "match.jsonl", FS: mfs})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})
}

func TestReplay_Cancelled(t *testing.T) {
	t.Parallel()

	mfs := fsutil.NewMemoryFileSystem()
	mfs.WriteFile("match.jsonl", []byte(matchFeed()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := replay(ctx, replayOptions{Input: "match.jsonl", FS: mfs, Tuning: fastTuning()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, res.Frames)
}

func TestReplay_MissingFeed(t *testing.T) {
	t.Parallel()
	_, err := replay(context.Background(), replayOptions{Input: "nope.jsonl", FS: fsutil.NewMemoryFileSystem()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open feed")
}
