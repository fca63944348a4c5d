package report

import (
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

// Sample is the running possession split at one frame.
type Sample struct {
	FrameIndex int64
	// Share holds each team's percentage of possessed frames so far.
	Share map[pitch.TeamLabel]float64
	Passes int
}

// Timeline samples the running possession split every Stride frames.
type Timeline struct {
	Stride  int
	samples []Sample
	seen    int
	passes  int
}

// NewTimeline creates a timeline. A stride below one samples every frame.
func NewTimeline(stride int) *Timeline {
	if stride < 1 {
		stride = 1
	}
	return &Timeline{Stride: stride}
}

// Add records a snapshot. Passes are always counted; shares are sampled.
func (t *Timeline) Add(s *match.Snapshot) {
	t.passes += len(s.Passes)
	t.seen++
	if (t.seen-1)%t.Stride != 0 {
		return
	}

	var possessed int64
	for _, team := range pitch.Teams {
		possessed += s.TeamFrames[team]
	}
	share := make(map[pitch.TeamLabel]float64, len(pitch.Teams))
	for _, team := range pitch.Teams {
		if possessed > 0 {
			share[team] = 100 * float64(s.TeamFrames[team]) / float64(possessed)
		}
	}
	t.samples = append(t.samples, Sample{FrameIndex: s.FrameIndex, Share: share, Passes: t.passes})
}

// Samples returns the recorded samples oldest first.
func (t *Timeline) Samples() []Sample {
	return append([]Sample(nil), t.samples...)
}
