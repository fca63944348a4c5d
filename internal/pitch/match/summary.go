package match

import (
	"fmt"
	"math"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

// TeamSummary is one team's end-of-run statistics.
type TeamSummary struct {
	Team             pitch.TeamLabel
	Name             string
	Abbreviation     string
	PossessionFrames int64
	// PossessionPercent is the team's share of frames with settled
	// possession, 0-100.
	PossessionPercent float64
	// PossessionTime is PossessionFrames at the configured FPS as mm:ss.
	PossessionTime string
	// Passes counts passes the team lost the ball on.
	Passes int
}

// Summary is the end-of-run report.
type Summary struct {
	TotalFrames     int64
	PossessedFrames int64
	Teams           []TeamSummary
	TotalPasses     int
	Passes          []pitch.PassEvent
}

// Team returns the entry for team, if present.
func (s Summary) Team(team pitch.TeamLabel) (TeamSummary, bool) {
	for _, t := range s.Teams {
		if t.Team == team {
			return t, true
		}
	}
	return TeamSummary{}, false
}

// Summary reports the statistics accumulated so far. It is only
// meaningful for a run that completed without a contract violation.
func (e *Engine) Summary() Summary {
	passes := e.Passes()
	credited := make(map[pitch.TeamLabel]int, len(pitch.Teams))
	for _, p := range passes {
		credited[p.From]++
	}

	s := Summary{
		TotalFrames:     e.state.TotalFrames,
		PossessedFrames: e.state.PossessedFrames(),
		TotalPasses:     len(passes),
		Passes:          passes,
	}
	for _, team := range pitch.Teams {
		style := e.cfg.Style(team)
		frames := e.state.TeamFrames[team]
		s.Teams = append(s.Teams, TeamSummary{
			Team:              team,
			Name:              style.Name,
			Abbreviation:      style.Abbreviation,
			PossessionFrames:  frames,
			PossessionPercent: 100 * e.state.Share(team),
			PossessionTime:    FormatDuration(frames, e.cfg.FPS),
			Passes:            credited[team],
		})
	}
	return s
}

// FormatDuration renders a frame count at fps as "mm:ss", truncating
// partial seconds. Minutes are not wrapped at an hour. A non-positive fps
// renders "00:00".
func FormatDuration(frames int64, fps float64) string {
	if fps <= 0 || frames <= 0 {
		return "00:00"
	}
	secs := int64(math.Floor(float64(frames) / fps))
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
