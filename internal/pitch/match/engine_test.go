package match

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/formation"
	"github.com/banshee-data/pitch.report/internal/pitch/possession"
)

func player(id int, x, y float64) pitch.Track {
	return pitch.Track{
		TrackID:  id,
		Kind:     pitch.KindPlayer,
		Box:      pitch.BoundingBox{X1: x - 10, Y1: y - 40, X2: x + 10, Y2: y},
		Position: pitch.Point{X: x, Y: y},
	}
}

func ball(x, y float64) pitch.Track {
	return pitch.Track{
		TrackID:  100,
		Kind:     pitch.KindBall,
		Box:      pitch.BoundingBox{X1: x - 3, Y1: y - 3, X2: x + 3, Y2: y + 3},
		Position: pitch.Point{X: x, Y: y},
	}
}

// Home player 1 stands at (100,500), away player 2 at (1500,500).
var sceneLabels = map[int]pitch.TeamLabel{1: pitch.Home, 2: pitch.Away}

func sceneFrame(index int64, ballX float64) pitch.Frame {
	return pitch.Frame{
		Index:  index,
		Tracks: []pitch.Track{player(1, 100, 500), player(2, 1500, 500), ball(ballX, 500)},
	}
}

const (
	atHome = 105.0
	atAway = 1495.0
	loose  = 800.0
)

// play feeds frames with the ball at each position in turn and returns
// the next frame index.
func play(t *testing.T, e *Engine, from int64, ballX float64, n int) int64 {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.ProcessFrame(sceneFrame(from, ballX), sceneLabels)
		require.NoError(t, err)
		from++
	}
	return from
}

func configWith(streak, trailCap, k int) Config {
	cfg := DefaultConfig()
	cfg.Possession.SwitchStreakFrames = streak
	cfg.TrailCapacity = trailCap
	cfg.Formation.NearestTeammatesK = k
	return cfg
}

func TestProcessFrame_DuplicateTrackIDAborts(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConfig())
	next := play(t, e, 0, atHome, 3)

	bad := pitch.Frame{Index: next, Tracks: []pitch.Track{player(7, 0, 0), player(7, 50, 50)}}
	snap, err := e.ProcessFrame(bad, nil)
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, pitch.ErrPreconditionViolation))

	var pe *pitch.PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, next, pe.FrameIndex)
	assert.Equal(t, 7, pe.TrackID)

	// The rejected frame did not count.
	assert.Equal(t, int64(3), e.Summary().TotalFrames)
}

func TestProcessFrame_RejectsNonAscendingIndex(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConfig())
	play(t, e, 10, atHome, 1)

	_, err := e.ProcessFrame(sceneFrame(10, atHome), sceneLabels)
	require.Error(t, err)
	_, err = e.ProcessFrame(sceneFrame(9, atHome), sceneLabels)
	require.Error(t, err)

	_, err = e.ProcessFrame(sceneFrame(12, atHome), sceneLabels)
	assert.NoError(t, err)
}

func TestProcessFrame_PossessionAndPass(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConfig())

	// 19 frames are one short of the default streak.
	next := play(t, e, 0, atHome, 19)
	snap, err := e.ProcessFrame(sceneFrame(next, atHome), sceneLabels)
	require.NoError(t, err)
	next++
	assert.Equal(t, pitch.Home, snap.Possession.Team)
	assert.Equal(t, possession.Possessing, snap.Possession.Phase)
	assert.True(t, snap.Possession.Switched)
	assert.Empty(t, snap.Passes, "first settlement is not a pass")

	next = play(t, e, next, atAway, 19)
	snap, err = e.ProcessFrame(sceneFrame(next, atAway), sceneLabels)
	require.NoError(t, err)
	require.Len(t, snap.Passes, 1)
	assert.Equal(t, pitch.PassEvent{From: pitch.Home, To: pitch.Away, FrameIndex: 39, PlayerID: 2}, snap.Passes[0])

	sum := e.Summary()
	assert.Equal(t, int64(40), sum.TotalFrames)
	assert.Equal(t, int64(21), sum.PossessedFrames)
	assert.Equal(t, 1, sum.TotalPasses)

	home, ok := sum.Team(pitch.Home)
	require.True(t, ok)
	assert.Equal(t, int64(20), home.PossessionFrames)
	assert.Equal(t, 1, home.Passes)
	assert.InDelta(t, 100*20.0/21.0, home.PossessionPercent, 1e-9)

	away, ok := sum.Team(pitch.Away)
	require.True(t, ok)
	assert.Equal(t, int64(1), away.PossessionFrames)
	assert.Equal(t, 0, away.Passes)
}

func TestProcessFrame_LooseBallAndUnlabelledPlayers(t *testing.T) {
	t.Parallel()

	e := NewEngine(configWith(1, 30, 2))

	// Out of reach of both players.
	snap, err := e.ProcessFrame(sceneFrame(0, loose), sceneLabels)
	require.NoError(t, err)
	assert.Equal(t, pitch.NoTrack, snap.Possession.ClosestPlayerID)
	assert.Equal(t, possession.NoPossession, snap.Possession.Phase)

	// Unlabelled players cannot gain possession.
	snap, err = e.ProcessFrame(sceneFrame(1, atHome), nil)
	require.NoError(t, err)
	assert.Equal(t, pitch.Unclassified, snap.Players[0].Team)
	assert.Equal(t, possession.NoPossession, snap.Possession.Phase)
}

func TestProcessFrame_FramesWithoutBall(t *testing.T) {
	t.Parallel()

	e := NewEngine(configWith(3, 30, 2))
	next := play(t, e, 0, atHome, 3)

	snap, err := e.ProcessFrame(pitch.Frame{Index: next, Tracks: []pitch.Track{player(1, 100, 500)}}, sceneLabels)
	require.NoError(t, err)
	assert.Nil(t, snap.Ball)
	assert.Equal(t, pitch.Home, snap.Possession.Team)
	assert.Len(t, snap.Trail, 3, "no ball, no trail point")
	assert.Equal(t, int64(2), snap.TeamFrames[pitch.Home])
}

func TestProcessFrame_TrailColour(t *testing.T) {
	t.Parallel()

	cfg := configWith(2, 30, 2)
	e := NewEngine(cfg)

	snap, err := e.ProcessFrame(sceneFrame(0, atHome), sceneLabels)
	require.NoError(t, err)
	assert.Equal(t, NeutralColour, snap.Trail[0].Colour)

	snap, err = e.ProcessFrame(sceneFrame(1, atHome), sceneLabels)
	require.NoError(t, err)
	assert.Equal(t, cfg.Home.Colour, snap.Trail[1].Colour)
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, cfg.Home.Colour.R, snap.Segments[0].Colour.R)

	e.ClearTrail()
	snap, err = e.ProcessFrame(sceneFrame(2, atHome), sceneLabels)
	require.NoError(t, err)
	assert.Len(t, snap.Trail, 1)
	assert.Equal(t, pitch.Home, snap.Possession.Team, "clearing the trail keeps possession")
}

func TestProcessFrame_SnapshotIsDetached(t *testing.T) {
	t.Parallel()

	e := NewEngine(configWith(1, 30, 2))
	snap, err := e.ProcessFrame(sceneFrame(0, atHome), sceneLabels)
	require.NoError(t, err)

	snap.TeamFrames[pitch.Home] = 99
	snap.Trail[0].FrameIndex = 99

	next, err := e.ProcessFrame(sceneFrame(1, atHome), sceneLabels)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.TeamFrames[pitch.Home])
	assert.Equal(t, int64(0), next.Trail[0].FrameIndex)
}

func TestProcessFrame_Formations(t *testing.T) {
	t.Parallel()

	e := NewEngine(DefaultConfig())
	frame := pitch.Frame{Index: 0, Tracks: []pitch.Track{
		player(4, 0, 100), player(3, 100, 100), player(2, 100, 0), player(1, 0, 0),
		player(9, 1500, 500),
	}}
	labels := map[int]pitch.TeamLabel{1: pitch.Home, 2: pitch.Home, 3: pitch.Home, 4: pitch.Home, 9: pitch.Away}

	snap, err := e.ProcessFrame(frame, labels)
	require.NoError(t, err)
	require.Len(t, snap.Formations, 2)

	home, ok := snap.Formation(pitch.Home)
	require.True(t, ok)
	want := []pitch.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	if diff := cmp.Diff(want, home.Polygon); diff != "" {
		t.Errorf("home polygon mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []formation.Edge{{A: 1, B: 2}, {A: 1, B: 4}, {A: 2, B: 3}, {A: 3, B: 4}}, home.Edges)

	away, ok := snap.Formation(pitch.Away)
	require.True(t, ok)
	assert.Nil(t, away.Polygon)

	ids := make([]int, len(snap.Players))
	for i, p := range snap.Players {
		ids[i] = p.TrackID
	}
	assert.Equal(t, []int{1, 2, 3, 4, 9}, ids)
}

func TestTunablesSweep(t *testing.T) {
	t.Parallel()

	for _, streak := range []int{1, 2, 5, 20} {
		for _, trailCap := range []int{1, 3, 30} {
			for _, k := range []int{1, 2, 3} {
				streak, trailCap, k := streak, trailCap, k
				name := fmt.Sprintf("streak=%d/trail=%d/k=%d", streak, trailCap, k)
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					e := NewEngine(configWith(streak, trailCap, k))
					next := play(t, e, 0, atHome, streak)
					// One frame short of a switch, then back home.
					next = play(t, e, next, atAway, streak-1)
					next = play(t, e, next, atHome, 1)
					assert.Empty(t, e.Passes(), "interrupted streak must not switch")

					next = play(t, e, next, atAway, streak)
					passes := e.Passes()
					require.Len(t, passes, 1)
					assert.Equal(t, next-1, passes[0].FrameIndex)
					assert.Equal(t, pitch.Home, passes[0].From)
					assert.Equal(t, pitch.Away, passes[0].To)

					snap, err := e.ProcessFrame(sceneFrame(next, atAway), sceneLabels)
					require.NoError(t, err)
					total := int(next) + 1
					wantTrail := trailCap
					if total < wantTrail {
						wantTrail = total
					}
					assert.Len(t, snap.Trail, wantTrail)
					assert.Equal(t, next, snap.Trail[len(snap.Trail)-1].FrameIndex)

					line := pitch.Frame{Index: next + 1, Tracks: []pitch.Track{
						player(0, 0, 0), player(1, 10, 0), player(2, 20, 0), player(3, 30, 0),
					}}
					labels := map[int]pitch.TeamLabel{0: pitch.Home, 1: pitch.Home, 2: pitch.Home, 3: pitch.Home}
					snap, err = e.ProcessFrame(line, labels)
					require.NoError(t, err)
					home, _ := snap.Formation(pitch.Home)
					wantEdges := map[int]int{1: 3, 2: 5, 3: 6}[k]
					assert.Len(t, home.Edges, wantEdges)
					assert.Nil(t, home.Polygon)
				})
			}
		}
	}
}

func TestSummary_Empty(t *testing.T) {
	t.Parallel()

	sum := NewEngine(DefaultConfig()).Summary()
	assert.Zero(t, sum.TotalFrames)
	assert.Zero(t, sum.TotalPasses)
	require.Len(t, sum.Teams, 2)
	for _, ts := range sum.Teams {
		assert.Equal(t, 0.0, ts.PossessionPercent)
		assert.Equal(t, "00:00", ts.PossessionTime)
	}
	assert.Equal(t, "Home", sum.Teams[0].Name)
	assert.Equal(t, "Away", sum.Teams[1].Name)
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		frames int64
		fps    float64
		want   string
	}{
		{0, 30, "00:00"},
		{29, 30, "00:00"},
		{30, 30, "00:01"},
		{1800, 30, "01:00"},
		{2730, 30, "01:31"},
		{25 * 3725, 25, "62:05"},
		{100, 0, "00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.frames, tt.fps), "frames=%d fps=%v", tt.frames, tt.fps)
	}
}

func TestConfigFromTuning(t *testing.T) {
	t.Parallel()

	streak := 7
	cfg := ConfigFromTuning(&config.TuningConfig{
		PossessionSwitchStreakFrames: &streak,
		Home:                         &config.TeamConfig{Name: "Inter Miami", Abbreviation: "MIA", Colour: "#f7b5cd"},
	})
	assert.Equal(t, 7, cfg.Possession.SwitchStreakFrames)
	assert.Equal(t, "Inter Miami", cfg.Home.Name)
	assert.Equal(t, uint8(0xf7), cfg.Home.Colour.R)
	assert.Equal(t, "Away", cfg.Away.Name)
	assert.Equal(t, 30, cfg.TrailCapacity)
	assert.Equal(t, NeutralColour, cfg.Style(pitch.Referee).Colour)
}

func TestLogStreams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	e := NewEngine(configWith(1, 30, 2))
	play(t, e, 0, atHome, 1)
	play(t, e, 1, atAway, 1)
	_, err := e.ProcessFrame(sceneFrame(1, atAway), sceneLabels)
	require.Error(t, err)

	assert.Contains(t, ops.String(), "frame 1 rejected")
	assert.Contains(t, diag.String(), "pass home->away at frame 1")
	assert.Contains(t, trace.String(), "frame 0: players=2 ball=true")
}
