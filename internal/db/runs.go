package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunAborted   = "aborted"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one replay of a detections feed.
type Run struct {
	RunID           string
	Source          string
	ConfigJSON      string
	Status          string
	StartedAt       time.Time
	CompletedAt     *time.Time
	TotalFrames     int64
	PossessedFrames int64
	TotalPasses     int
	ErrorMessage    string
}

// TeamStat is one team's persisted summary for a run.
type TeamStat struct {
	Team              string
	Name              string
	PossessionFrames  int64
	PossessionPercent float64
	PossessionTime    string
	Passes            int
}

// CreateRun inserts a new running run and returns it.
func (db *DB) CreateRun(ctx context.Context, source, configJSON string) (*Run, error) {
	if configJSON == "" {
		configJSON = "{}"
	}
	run := &Run{
		RunID:      uuid.NewString(),
		Source:     source,
		ConfigJSON: configJSON,
		Status:     RunRunning,
		StartedAt:  db.clock.Now().UTC().Truncate(time.Second),
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (run_id, source, config_json, status, started_unix) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.Source, run.ConfigJSON, run.Status, run.StartedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// InsertPassEvent appends a pass to the run's log.
func (db *DB) InsertPassEvent(ctx context.Context, runID string, p pitch.PassEvent) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO pass_events (run_id, frame_index, from_team, to_team, player_id) VALUES (?, ?, ?, ?, ?)`,
		runID, p.FrameIndex, p.From.String(), p.To.String(), p.PlayerID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pass event: %w", err)
	}
	return nil
}

// CompleteRun stores the final summary and marks the run completed.
func (db *DB) CompleteRun(ctx context.Context, runID string, s match.Summary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_unix = ?, total_frames = ?, possessed_frames = ?, total_passes = ?
		 WHERE run_id = ?`,
		RunCompleted, db.clock.Now().Unix(), s.TotalFrames, s.PossessedFrames, s.TotalPasses, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	for _, ts := range s.Teams {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO run_team_stats
			 (run_id, team, name, possession_frames, possession_percent, possession_time, passes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, ts.Team.String(), ts.Name, ts.PossessionFrames, ts.PossessionPercent, ts.PossessionTime, ts.Passes,
		)
		if err != nil {
			return fmt.Errorf("failed to store %s stats: %w", ts.Team, err)
		}
	}
	return tx.Commit()
}

// AbortRun marks the run aborted with the error that stopped it.
func (db *DB) AbortRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_unix = ?, error_message = ? WHERE run_id = ?`,
		RunAborted, db.clock.Now().Unix(), msg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to abort run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `run_id, source, config_json, status, started_unix, completed_unix,
	total_frames, possessed_frames, total_passes, error_message`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r         Run
		started   int64
		completed sql.NullInt64
		errMsg    sql.NullString
	)
	if err := row.Scan(&r.RunID, &r.Source, &r.ConfigJSON, &r.Status, &started, &completed,
		&r.TotalFrames, &r.PossessedFrames, &r.TotalPasses, &errMsg); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		r.CompletedAt = &t
	}
	r.ErrorMessage = errMsg.String
	return &r, nil
}

// GetRun loads one run.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// ListRuns returns the most recent runs first. A non-positive limit
// returns all runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListPassEvents returns the run's passes in frame order.
func (db *DB) ListPassEvents(ctx context.Context, runID string) ([]pitch.PassEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT frame_index, from_team, to_team, player_id FROM pass_events
		 WHERE run_id = ? ORDER BY frame_index, pass_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []pitch.PassEvent
	for rows.Next() {
		var (
			p        pitch.PassEvent
			from, to string
		)
		if err := rows.Scan(&p.FrameIndex, &from, &to, &p.PlayerID); err != nil {
			return nil, err
		}
		if p.From, err = pitch.ParseTeamLabel(from); err != nil {
			return nil, err
		}
		if p.To, err = pitch.ParseTeamLabel(to); err != nil {
			return nil, err
		}
		passes = append(passes, p)
	}
	return passes, rows.Err()
}

// ListTeamStats returns the run's per-team summary rows, home first.
func (db *DB) ListTeamStats(ctx context.Context, runID string) ([]TeamStat, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT team, name, possession_frames, possession_percent, possession_time, passes
		 FROM run_team_stats WHERE run_id = ?
		 ORDER BY CASE team WHEN 'home' THEN 0 WHEN 'away' THEN 1 ELSE 2 END`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TeamStat
	for rows.Next() {
		var s TeamStat
		if err := rows.Scan(&s.Team, &s.Name, &s.PossessionFrames, &s.PossessionPercent, &s.PossessionTime, &s.Passes); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
