package api

import (
	"time"

	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

type teamResponse struct {
	Team              string  `json:"team"`
	Name              string  `json:"name"`
	Abbreviation      string  `json:"abbreviation,omitempty"`
	PossessionFrames  int64   `json:"possession_frames"`
	PossessionPercent float64 `json:"possession_percent"`
	PossessionTime    string  `json:"possession_time"`
	Passes            int     `json:"passes"`
}

type passResponse struct {
	From       string `json:"from"`
	To         string `json:"to"`
	FrameIndex int64  `json:"frame_index"`
	PlayerID   int    `json:"player_id"`
}

type summaryResponse struct {
	TotalFrames     int64          `json:"total_frames"`
	PossessedFrames int64          `json:"possessed_frames"`
	TotalPasses     int            `json:"total_passes"`
	Teams           []teamResponse `json:"teams"`
	Passes          []passResponse `json:"passes"`
}

type runResponse struct {
	RunID           string         `json:"run_id"`
	Source          string         `json:"source"`
	Status          string         `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	TotalFrames     int64          `json:"total_frames"`
	PossessedFrames int64          `json:"possessed_frames"`
	TotalPasses     int            `json:"total_passes"`
	Error           string         `json:"error,omitempty"`
	Teams           []teamResponse `json:"teams,omitempty"`
}

func toRunResponse(r *db.Run) runResponse {
	return runResponse{
		RunID:           r.RunID,
		Source:          r.Source,
		Status:          r.Status,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		TotalFrames:     r.TotalFrames,
		PossessedFrames: r.PossessedFrames,
		TotalPasses:     r.TotalPasses,
		Error:           r.ErrorMessage,
	}
}

func passResponses(passes []pitch.PassEvent) []passResponse {
	out := make([]passResponse, 0, len(passes))
	for _, p := range passes {
		out = append(out, passResponse{
			From:       p.From.String(),
			To:         p.To.String(),
			FrameIndex: p.FrameIndex,
			PlayerID:   p.PlayerID,
		})
	}
	return out
}

func toSummaryResponse(s match.Summary) summaryResponse {
	resp := summaryResponse{
		TotalFrames:     s.TotalFrames,
		PossessedFrames: s.PossessedFrames,
		TotalPasses:     s.TotalPasses,
		Passes:          passResponses(s.Passes),
	}
	for _, ts := range s.Teams {
		resp.Teams = append(resp.Teams, teamResponse{
			Team:              ts.Team.String(),
			Name:              ts.Name,
			Abbreviation:      ts.Abbreviation,
			PossessionFrames:  ts.PossessionFrames,
			PossessionPercent: ts.PossessionPercent,
			PossessionTime:    ts.PossessionTime,
			Passes:            ts.Passes,
		})
	}
	return resp
}
