// Package trail keeps the most recent ball positions for rendering a
// fading trail behind the ball.
package trail

import (
	"image/color"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

// DefaultCapacity matches the ball_trail_capacity default.
const DefaultCapacity = 30

// MaxSegmentWidth is the stroke width of the newest trail segment.
const MaxSegmentWidth = 6

// Point is one recorded ball position, coloured by the team in possession
// at the time it was recorded.
type Point struct {
	Position   pitch.Point
	Colour     color.RGBA
	FrameIndex int64
}

// Segment joins two consecutive trail points with render styling. Older
// segments are thinner and more transparent.
type Segment struct {
	From, To pitch.Point
	Colour   color.RGBA
	Width    int
}

// Buffer is a fixed-capacity FIFO of trail points. Recording into a full
// buffer drops the oldest point.
type Buffer struct {
	points []Point
	head   int // index of the oldest point once full
	size   int
}

// New creates a Buffer. Capacities below one are raised to one.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{points: make([]Point, capacity)}
}

// Capacity returns the maximum number of points retained.
func (b *Buffer) Capacity() int { return len(b.points) }

// Len returns the number of points currently held.
func (b *Buffer) Len() int { return b.size }

// Record appends a position, evicting the oldest when full.
func (b *Buffer) Record(position pitch.Point, colour color.RGBA, frameIndex int64) {
	p := Point{Position: position, Colour: colour, FrameIndex: frameIndex}
	if b.size < len(b.points) {
		b.points[(b.head+b.size)%len(b.points)] = p
		b.size++
		return
	}
	b.points[b.head] = p
	b.head = (b.head + 1) % len(b.points)
}

// Snapshot returns the held points oldest first. The slice is a copy.
func (b *Buffer) Snapshot() []Point {
	out := make([]Point, b.size)
	for i := range out {
		out[i] = b.points[(b.head+i)%len(b.points)]
	}
	return out
}

// Segments returns the trail as line segments, oldest first. Segment i
// ends at point i (1-based among n points) and gets alpha 255*i/n and
// width max(1, MaxSegmentWidth*i/n). Fewer than two points give none.
func (b *Buffer) Segments() []Segment {
	pts := b.Snapshot()
	n := len(pts)
	if n < 2 {
		return nil
	}
	segs := make([]Segment, 0, n-1)
	for i := 1; i < n; i++ {
		c := pts[i].Colour
		c.A = uint8(255 * i / n)
		w := MaxSegmentWidth * i / n
		if w < 1 {
			w = 1
		}
		segs = append(segs, Segment{From: pts[i-1].Position, To: pts[i].Position, Colour: c, Width: w})
	}
	return segs
}

// Clear drops all points.
func (b *Buffer) Clear() {
	b.head = 0
	b.size = 0
}
