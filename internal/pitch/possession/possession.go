package possession

import (
	"fmt"
	"math"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"gonum.org/v1/gonum/spatial/r2"
)

// Anchor selects the player point measured against the ball.
type Anchor int

const (
	// AnchorPosition uses the track's reported position.
	AnchorPosition Anchor = iota
	// AnchorFeet uses the nearer of the two bottom corners of the box.
	AnchorFeet
)

// Config holds the possession parameters.
type Config struct {
	DistanceThreshold  float64 // max player-ball distance (pixels)
	SwitchStreakFrames int     // frames a new team must hold before a switch commits
	Anchor             Anchor
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	anchor := AnchorPosition
	if cfg.GetPossessionAnchor() == config.AnchorFeet {
		anchor = AnchorFeet
	}
	return Config{
		DistanceThreshold:  cfg.GetPossessionDistanceThreshold(),
		SwitchStreakFrames: cfg.GetPossessionSwitchStreakFrames(),
		Anchor:             anchor,
	}
}

// Phase is the state-machine view of a State.
type Phase int

const (
	NoPossession Phase = iota
	Possessing
	CandidateSwitch
)

func (p Phase) String() string {
	switch p {
	case NoPossession:
		return "no_possession"
	case Possessing:
		return "possessing"
	case CandidateSwitch:
		return "candidate_switch"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the possession state for one run. The zero value is not ready;
// use NewState.
type State struct {
	CurrentTeam     pitch.TeamLabel // Unclassified when nobody has settled possession
	PlayerID        int             // possessing player, pitch.NoTrack when unknown
	CandidateTeam   pitch.TeamLabel // Unclassified when no switch is pending
	CandidateStreak int

	// TeamFrames counts frames in which each team held settled possession.
	TeamFrames  map[pitch.TeamLabel]int64
	TotalFrames int64
}

// NewState returns the initial NoPossession state.
func NewState() State {
	return State{
		PlayerID:   pitch.NoTrack,
		TeamFrames: make(map[pitch.TeamLabel]int64, len(pitch.Teams)),
	}
}

// Phase reports where the state machine is.
func (s *State) Phase() Phase {
	switch {
	case s.CandidateStreak > 0:
		return CandidateSwitch
	case s.CurrentTeam.IsTeam():
		return Possessing
	default:
		return NoPossession
	}
}

// PossessedFrames returns the number of frames with any settled possession.
func (s *State) PossessedFrames() int64 {
	var n int64
	for _, team := range pitch.Teams {
		n += s.TeamFrames[team]
	}
	return n
}

// Share returns team's fraction of possessed frames in [0, 1], or 0 when
// nobody has had the ball yet.
func (s *State) Share(team pitch.TeamLabel) float64 {
	total := s.PossessedFrames()
	if total == 0 {
		return 0
	}
	return float64(s.TeamFrames[team]) / float64(total)
}

// Update is what one frame did to the state.
type Update struct {
	// ClosestPlayerID is the closest team player within the threshold,
	// pitch.NoTrack when none qualified.
	ClosestPlayerID int
	ClosestTeam     pitch.TeamLabel
	Distance        float64
	// Pass is set when this frame committed a switch between two teams.
	Pass *pitch.PassEvent
	// Switched is set on every committed switch, including the first
	// settlement out of NoPossession (which emits no pass).
	Switched bool
}

// Tracker applies the possession rules to a State.
type Tracker struct {
	cfg Config
}

// NewTracker creates a tracker. A streak below 1 is raised to 1.
func NewTracker(cfg Config) *Tracker {
	if cfg.SwitchStreakFrames < 1 {
		cfg.SwitchStreakFrames = 1
	}
	return &Tracker{cfg: cfg}
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config { return t.cfg }

// Update advances s by one frame. ball may be nil when the frame has no
// ball detection; players carry their settled labels. Only Home and Away
// players can gain possession.
func (t *Tracker) Update(s *State, frameIndex int64, players []pitch.LabeledPlayer, ball *pitch.Track) Update {
	if s.TeamFrames == nil {
		s.TeamFrames = make(map[pitch.TeamLabel]int64, len(pitch.Teams))
	}
	u := Update{ClosestPlayerID: pitch.NoTrack, Distance: math.Inf(1)}

	if ball != nil {
		if p, d, ok := Closest(players, ball.Position, t.cfg.Anchor); ok && d <= t.cfg.DistanceThreshold {
			u.ClosestPlayerID, u.ClosestTeam, u.Distance = p.TrackID, p.Team, d
			t.apply(s, frameIndex, p, &u)
		}
	}

	s.TotalFrames++
	if s.CurrentTeam.IsTeam() {
		s.TeamFrames[s.CurrentTeam]++
	}
	return u
}

func (t *Tracker) apply(s *State, frameIndex int64, p pitch.LabeledPlayer, u *Update) {
	if p.Team == s.CurrentTeam {
		s.PlayerID = p.TrackID
		s.CandidateTeam = pitch.Unclassified
		s.CandidateStreak = 0
		return
	}

	if p.Team == s.CandidateTeam {
		s.CandidateStreak++
	} else {
		s.CandidateTeam = p.Team
		s.CandidateStreak = 1
	}
	if s.CandidateStreak < t.cfg.SwitchStreakFrames {
		return
	}

	if s.CurrentTeam.IsTeam() {
		u.Pass = &pitch.PassEvent{
			From:       s.CurrentTeam,
			To:         s.CandidateTeam,
			FrameIndex: frameIndex,
			PlayerID:   p.TrackID,
		}
	}
	u.Switched = true
	s.CurrentTeam = s.CandidateTeam
	s.PlayerID = p.TrackID
	s.CandidateTeam = pitch.Unclassified
	s.CandidateStreak = 0
}

// Closest returns the team player nearest to ball, measured from the
// chosen anchor. Players without a Home or Away label are ignored. Equal
// distances go to the lower track id.
func Closest(players []pitch.LabeledPlayer, ball pitch.Point, anchor Anchor) (pitch.LabeledPlayer, float64, bool) {
	var best pitch.LabeledPlayer
	bestDist := math.Inf(1)
	found := false
	for _, p := range players {
		if !p.Team.IsTeam() {
			continue
		}
		d := Distance(p.Track, ball, anchor)
		if d < bestDist || (d == bestDist && found && p.TrackID < best.TrackID) {
			best, bestDist, found = p, d, true
		}
	}
	return best, bestDist, found
}

// Distance measures a player track against a ball position.
func Distance(tr pitch.Track, ball pitch.Point, anchor Anchor) float64 {
	if anchor == AnchorFeet {
		left, right := tr.Box.Feet()
		return math.Min(r2.Norm(r2.Sub(ball, left)), r2.Norm(r2.Sub(ball, right)))
	}
	return r2.Norm(r2.Sub(ball, tr.Position))
}
