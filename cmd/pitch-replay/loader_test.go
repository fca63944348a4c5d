package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

func TestFeedReader(t *testing.T) {
	t.Parallel()

	feed := `{"frame_index": 0, "tracks": [
		{"track_id": 7, "kind": "player", "bbox": [10, 20, 30, 60], "raw_team": "home"},
		{"track_id": 9, "kind": "player", "bbox": [100, 20, 120, 60]},
		{"track_id": 99, "kind": "ball", "bbox": [40, 50, 46, 56], "raw_team": "away"}]}

{"frame_index": 1, "image": "frames/0001.png", "tracks": []}
`
	fr := newFeedReader(strings.NewReader(strings.ReplaceAll(feed, "\n\t\t", " ")))

	first, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Frame.Index)
	require.Len(t, first.Frame.Tracks, 3)

	p := first.Frame.Tracks[0]
	assert.Equal(t, 7, p.TrackID)
	assert.Equal(t, pitch.KindPlayer, p.Kind)
	assert.Equal(t, pitch.BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 60}, p.Box)
	assert.Equal(t, pitch.Point{X: 20, Y: 40}, p.Position)

	assert.Equal(t, pitch.KindBall, first.Frame.Tracks[2].Kind)
	assert.Equal(t, pitch.Point{X: 43, Y: 53}, first.Frame.Tracks[2].Position)

	// Only players carry raw labels; a missing raw_team is Unclassified.
	assert.Equal(t, map[int]pitch.TeamLabel{7: pitch.Home, 9: pitch.Unclassified}, first.Raw)
	assert.Empty(t, first.Image)

	second, err := fr.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Frame.Index)
	assert.Equal(t, "frames/0001.png", second.Image)
	assert.Empty(t, second.Frame.Tracks)

	_, err = fr.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestFeedReader_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{"bad json", `{"frame_index": `, "invalid detections json"},
		{"missing index", `{"tracks": []}`, "missing frame_index"},
		{"unknown kind", `{"frame_index": 3, "tracks": [{"track_id": 1, "kind": "goalpost", "bbox": [0,0,1,1]}]}`, "tracks[0]: unknown track kind"},
		{"unknown team", `{"frame_index": 3, "tracks": [{"track_id": 1, "kind": "player", "bbox": [0,0,1,1], "raw_team": "visitors"}]}`, "unknown team label"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fr := newFeedReader(strings.NewReader("\n" + tt.line + "\n"))
			_, err := fr.Next()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestFeedReader_BBoxArityIsPrecondition(t *testing.T) {
	t.Parallel()

	for _, bbox := range []string{"[]", "[0,0,1]", "[0,0,1,1,2]"} {
		line := `{"frame_index": 3, "tracks": [{"track_id": 1, "kind": "ball", "bbox": [0,0,1,1]}, {"track_id": 5, "kind": "player", "bbox": ` + bbox + `}]}`
		fr := newFeedReader(strings.NewReader(line))
		_, err := fr.Next()
		require.Error(t, err, bbox)
		assert.ErrorIs(t, err, pitch.ErrPreconditionViolation, bbox)

		var pe *pitch.PreconditionError
		require.True(t, errors.As(err, &pe), bbox)
		assert.Equal(t, int64(3), pe.FrameIndex)
		assert.Equal(t, 5, pe.TrackID)
		assert.Contains(t, pe.Reason, "tracks[1]")
		assert.Contains(t, err.Error(), "line 1")
	}
}

func TestFeedReader_PassesMalformedBoxesThrough(t *testing.T) {
	t.Parallel()

	// An inverted box decodes; rejecting it is the engine's job.
	fr := newFeedReader(strings.NewReader(`{"frame_index": 0, "tracks": [{"track_id": 1, "kind": "player", "bbox": [30, 20, 10, 60]}]}`))
	ff, err := fr.Next()
	require.NoError(t, err)
	assert.False(t, ff.Frame.Tracks[0].Box.Valid())
}
