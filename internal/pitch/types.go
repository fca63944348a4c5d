package pitch

import (
	"fmt"
	"image"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a 2D position in frame coordinates (pixels, y grows downwards).
type Point = r2.Vec

// Kind distinguishes player tracks from the ball track.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindBall
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindBall:
		return "ball"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses "player" or "ball".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player":
		return KindPlayer, nil
	case "ball":
		return KindBall, nil
	default:
		return 0, fmt.Errorf("unknown track kind %q", s)
	}
}

// BoundingBox is an axis-aligned box in frame pixels. (X1, Y1) is the
// top-left corner and (X2, Y2) the bottom-right corner.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// Valid reports whether all coordinates are finite and the corners are
// ordered. A zero-area box is valid; an inverted one is not.
func (b BoundingBox) Valid() bool {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X2 >= b.X1 && b.Y2 >= b.Y1
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Feet returns the bottom-left and bottom-right corners, which stand in
// for a player's feet.
func (b BoundingBox) Feet() (left, right Point) {
	return Point{X: b.X1, Y: b.Y2}, Point{X: b.X2, Y: b.Y2}
}

// Rect converts the box to an integer image rectangle, truncating towards
// the top-left as the cropping code expects.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Track is one tracker-assigned entity observed in the current frame.
// The core reads tracks; it never mutates or retains them past the frame.
type Track struct {
	TrackID  int
	Kind     Kind
	Box      BoundingBox
	Position Point
}

// Frame is the full detector/tracker output for one video frame.
type Frame struct {
	Index  int64
	Tracks []Track
}

// Players returns the player tracks of the frame in input order.
func (f Frame) Players() []Track {
	players := make([]Track, 0, len(f.Tracks))
	for _, t := range f.Tracks {
		if t.Kind == KindPlayer {
			players = append(players, t)
		}
	}
	return players
}

// Ball returns the ball track, if the frame has one.
func (f Frame) Ball() (Track, bool) {
	for _, t := range f.Tracks {
		if t.Kind == KindBall {
			return t, true
		}
	}
	return Track{}, false
}

// TeamLabel is the closed set of labels a player track can carry.
// Unclassified is the sentinel for "not enough evidence yet".
type TeamLabel uint8

const (
	Unclassified TeamLabel = iota
	Home
	Away
	Referee
)

// Teams lists the labels that take part in possession and formation,
// in reporting order.
var Teams = [...]TeamLabel{Home, Away}

// IsTeam reports whether the label is one of the two competing teams.
func (l TeamLabel) IsTeam() bool {
	return l == Home || l == Away
}

func (l TeamLabel) String() string {
	switch l {
	case Unclassified:
		return "unclassified"
	case Home:
		return "home"
	case Away:
		return "away"
	case Referee:
		return "referee"
	default:
		return fmt.Sprintf("team(%d)", uint8(l))
	}
}

// ParseTeamLabel parses the String form of a label. The empty string,
// "none" and "unknown" all map to Unclassified.
func ParseTeamLabel(s string) (TeamLabel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unknown", "unclassified":
		return Unclassified, nil
	case "home":
		return Home, nil
	case "away":
		return Away, nil
	case "referee":
		return Referee, nil
	default:
		return Unclassified, fmt.Errorf("unknown team label %q", s)
	}
}

// LabeledPlayer is a player track paired with its settled team label for
// the current frame.
type LabeledPlayer struct {
	Track
	Team TeamLabel
}

// PassEvent records a committed change of possession between two teams.
type PassEvent struct {
	From       TeamLabel
	To         TeamLabel
	FrameIndex int64
	// PlayerID is the receiving player at commit time.
	PlayerID int
}

func (e PassEvent) String() string {
	return fmt.Sprintf("pass %s->%s at frame %d (player %d)", e.From, e.To, e.FrameIndex, e.PlayerID)
}
