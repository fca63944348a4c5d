package match

import (
	"sort"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/formation"
	"github.com/banshee-data/pitch.report/internal/pitch/possession"
	"github.com/banshee-data/pitch.report/internal/pitch/trail"
)

// PossessionView is the possession state after a frame plus what the
// frame itself observed.
type PossessionView struct {
	Phase           possession.Phase
	Team            pitch.TeamLabel
	PlayerID        int
	CandidateTeam   pitch.TeamLabel
	CandidateStreak int
	// ClosestPlayerID is pitch.NoTrack when no team player was within
	// the distance threshold of the ball this frame.
	ClosestPlayerID int
	ClosestTeam     pitch.TeamLabel
	Distance        float64
	// Switched is set when this frame committed a change of team.
	Switched bool
}

// Snapshot is the tactical picture after one frame. It shares no memory
// with the engine.
type Snapshot struct {
	FrameIndex int64
	// Players are the frame's player tracks with settled labels, in
	// ascending track id order.
	Players    []pitch.LabeledPlayer
	Ball       *pitch.Track
	Formations []formation.Snapshot
	Trail      []trail.Point
	Segments   []trail.Segment
	Possession PossessionView
	// TeamFrames and TotalFrames are the running possession counters.
	TeamFrames  map[pitch.TeamLabel]int64
	TotalFrames int64
	// Passes holds the passes committed by this frame (zero or one).
	Passes []pitch.PassEvent
}

// Formation returns the snapshot for team, if present.
func (s *Snapshot) Formation(team pitch.TeamLabel) (formation.Snapshot, bool) {
	for _, f := range s.Formations {
		if f.Team == team {
			return f, true
		}
	}
	return formation.Snapshot{}, false
}

// Engine owns the per-run tactical state.
type Engine struct {
	cfg       Config
	validator pitch.FrameValidator
	tracker   *possession.Tracker
	state     possession.State
	trail     *trail.Buffer
	passes    []pitch.PassEvent
}

// NewEngine creates an engine for one run.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		tracker: possession.NewTracker(cfg.Possession),
		state:   possession.NewState(),
		trail:   trail.New(cfg.TrailCapacity),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Validate checks a frame against the input contract without advancing
// the engine.
func (e *Engine) Validate(frame pitch.Frame) error {
	return e.validator.Validate(frame)
}

// ProcessFrame advances the run by one frame. labels maps player track
// ids to settled team labels; players missing from it are Unclassified
// and entries for other ids are ignored.
//
// A contract violation returns a *pitch.PreconditionError, no snapshot,
// and leaves the engine untouched.
func (e *Engine) ProcessFrame(frame pitch.Frame, labels map[int]pitch.TeamLabel) (*Snapshot, error) {
	if err := e.validator.Check(frame); err != nil {
		opsf("frame %d rejected: %v", frame.Index, err)
		return nil, err
	}

	players := labelPlayers(frame.Players(), labels)

	var ball *pitch.Track
	if b, ok := frame.Ball(); ok {
		ball = &b
	}

	u := e.tracker.Update(&e.state, frame.Index, players, ball)
	if u.Switched {
		diagf("frame %d: possession to %s (player %d)", frame.Index, e.state.CurrentTeam, e.state.PlayerID)
	}
	if u.Pass != nil {
		e.passes = append(e.passes, *u.Pass)
		diagf("frame %d: %s", frame.Index, u.Pass)
	}

	if ball != nil {
		e.trail.Record(ball.Position, e.cfg.Style(e.state.CurrentTeam).Colour, frame.Index)
	}

	snap := &Snapshot{
		FrameIndex: frame.Index,
		Players:    players,
		Ball:       ball,
		Formations: formation.BuildAll(players, e.cfg.Formation),
		Trail:      e.trail.Snapshot(),
		Segments:   e.trail.Segments(),
		Possession: PossessionView{
			Phase:           e.state.Phase(),
			Team:            e.state.CurrentTeam,
			PlayerID:        e.state.PlayerID,
			CandidateTeam:   e.state.CandidateTeam,
			CandidateStreak: e.state.CandidateStreak,
			ClosestPlayerID: u.ClosestPlayerID,
			ClosestTeam:     u.ClosestTeam,
			Distance:        u.Distance,
			Switched:        u.Switched,
		},
		TeamFrames:  copyCounts(e.state.TeamFrames),
		TotalFrames: e.state.TotalFrames,
	}
	if u.Pass != nil {
		snap.Passes = []pitch.PassEvent{*u.Pass}
	}

	tracef("frame %d: players=%d ball=%t possession=%s streak=%d/%s",
		frame.Index, len(players), ball != nil, e.state.CurrentTeam,
		e.state.CandidateStreak, e.state.CandidateTeam)
	return snap, nil
}

// Passes returns a copy of the pass log in commit order.
func (e *Engine) Passes() []pitch.PassEvent {
	return append([]pitch.PassEvent(nil), e.passes...)
}

// ClearTrail drops the ball trail without touching possession.
func (e *Engine) ClearTrail() {
	e.trail.Clear()
}

func labelPlayers(tracks []pitch.Track, labels map[int]pitch.TeamLabel) []pitch.LabeledPlayer {
	out := make([]pitch.LabeledPlayer, len(tracks))
	for i, t := range tracks {
		out[i] = pitch.LabeledPlayer{Track: t, Team: labels[t.TrackID]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackID < out[j].TrackID })
	return out
}

func copyCounts(in map[pitch.TeamLabel]int64) map[pitch.TeamLabel]int64 {
	out := make(map[pitch.TeamLabel]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
