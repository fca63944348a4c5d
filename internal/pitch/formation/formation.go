package formation

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
)

// InsufficientPlayers is the line-up string for teams with fewer than
// MinLineUpPlayers settled players.
const InsufficientPlayers = "insufficient_players"

// MinLineUpPlayers is the smallest team size that gets a line-up string.
const MinLineUpPlayers = 3

// Config holds the formation parameters.
type Config struct {
	NearestTeammatesK int
	FieldWidth        float64
	FieldHeight       float64
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		NearestTeammatesK: cfg.GetNearestTeammatesK(),
		FieldWidth:        cfg.GetFieldWidth(),
		FieldHeight:       cfg.GetFieldHeight(),
	}
}

// Third is a band of the field along the x axis.
type Third int

const (
	Defense Third = iota
	Midfield
	Attack
)

func (t Third) String() string {
	switch t {
	case Defense:
		return "defense"
	case Midfield:
		return "midfield"
	case Attack:
		return "attack"
	default:
		return fmt.Sprintf("third(%d)", int(t))
	}
}

// Channel is a band of the field along the y axis.
type Channel int

const (
	Left Channel = iota
	Center
	Right
)

func (c Channel) String() string {
	switch c {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Zone is one cell of the 3x3 tactical grid.
type Zone struct {
	Third   Third
	Channel Channel
}

func (z Zone) String() string {
	return z.Third.String() + "_" + z.Channel.String()
}

// ZoneOf places p on a field of the given size split into thirds both
// ways. Points outside the field clamp to the edge cells.
func ZoneOf(p pitch.Point, width, height float64) Zone {
	return Zone{
		Third:   Third(band(p.X, width)),
		Channel: Channel(band(p.Y, height)),
	}
}

func band(v, extent float64) int {
	switch {
	case v < extent/3:
		return 0
	case v < 2*extent/3:
		return 1
	default:
		return 2
	}
}

// LineUp counts players per third and renders "defense-midfield-attack",
// e.g. "4-4-2".
func LineUp(points []pitch.Point, width, height float64) string {
	if len(points) < MinLineUpPlayers {
		return InsufficientPlayers
	}
	var counts [3]int
	for _, p := range points {
		counts[ZoneOf(p, width, height).Third]++
	}
	return fmt.Sprintf("%d-%d-%d", counts[Defense], counts[Midfield], counts[Attack])
}

// DefaultLineTolerance is the default InFormationLine tolerance in pixels.
const DefaultLineTolerance = 50.0

// InFormationLine reports whether p shares a horizontal or vertical line
// with at least one teammate, i.e. differs from it by less than tolerance
// on y or on x. teammates must not include p's own track. Fewer than two
// teammates never form a line.
func InFormationLine(p pitch.Point, teammates []pitch.Point, tolerance float64) bool {
	if len(teammates) < 2 {
		return false
	}
	for _, q := range teammates {
		if math.Abs(q.Y-p.Y) < tolerance || math.Abs(q.X-p.X) < tolerance {
			return true
		}
	}
	return false
}

// Snapshot is the derived shape of one team in one frame.
type Snapshot struct {
	Team pitch.TeamLabel
	// PlayerIDs are the team's track ids in ascending order.
	PlayerIDs []int
	Edges     []Edge
	// Polygon is nil when the team has no well-defined hull.
	Polygon     []pitch.Point
	Area        float64
	Centroid    pitch.Point
	HasCentroid bool
	Compactness float64
	// Zones counts players per grid cell; empty below MinLineUpPlayers.
	Zones  map[Zone]int
	LineUp string
}

// Build derives the team's snapshot from the players that carry its
// label. Players of other labels are ignored.
func Build(team pitch.TeamLabel, players []pitch.LabeledPlayer, cfg Config) Snapshot {
	var members []pitch.Track
	for _, p := range players {
		if p.Team == team {
			members = append(members, p.Track)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].TrackID < members[j].TrackID })

	snap := Snapshot{Team: team, LineUp: InsufficientPlayers}
	if len(members) == 0 {
		return snap
	}

	points := make([]pitch.Point, len(members))
	snap.PlayerIDs = make([]int, len(members))
	snap.Zones = make(map[Zone]int)
	for i, m := range members {
		points[i] = m.Position
		snap.PlayerIDs[i] = m.TrackID
		if len(members) >= MinLineUpPlayers {
			snap.Zones[ZoneOf(m.Position, cfg.FieldWidth, cfg.FieldHeight)]++
		}
	}

	snap.Edges = Connections(members, cfg.NearestTeammatesK)
	snap.Polygon = ConvexHull(points)
	snap.Area = Area(snap.Polygon)
	snap.Centroid, snap.HasCentroid = Centroid(points)
	snap.Compactness = Compactness(points)
	snap.LineUp = LineUp(points, cfg.FieldWidth, cfg.FieldHeight)
	return snap
}

// BuildAll returns one snapshot per competing team, in pitch.Teams order.
func BuildAll(players []pitch.LabeledPlayer, cfg Config) []Snapshot {
	out := make([]Snapshot, 0, len(pitch.Teams))
	for _, team := range pitch.Teams {
		out = append(out, Build(team, players, cfg))
	}
	return out
}
