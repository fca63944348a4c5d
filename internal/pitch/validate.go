package pitch

import "math"

// FrameValidator enforces the per-run input contract: strictly ascending
// frame indices, unique track ids within a frame, well-formed boxes and
// at most one ball.
//
// The zero value is ready to use. A validator is not safe for concurrent
// use; the engine is frame-sequential.
type FrameValidator struct {
	last    int64
	started bool
}

// Check validates f against the contract and, on success, records its
// index as the latest seen. A failing frame does not advance the
// validator.
func (v *FrameValidator) Check(f Frame) error {
	if err := v.Validate(f); err != nil {
		return err
	}
	v.last = f.Index
	v.started = true
	return nil
}

// Validate checks f without recording it.
func (v *FrameValidator) Validate(f Frame) error {
	if v.started && f.Index <= v.last {
		return violation(f.Index, NoTrack, "frame index not ascending (previous %d)", v.last)
	}
	return ValidateFrame(f)
}

// Last returns the most recent accepted frame index and whether any frame
// has been accepted yet.
func (v *FrameValidator) Last() (int64, bool) {
	return v.last, v.started
}

// ValidateFrame checks the contract conditions that do not depend on
// previous frames.
func ValidateFrame(f Frame) error {
	seen := make(map[int]struct{}, len(f.Tracks))
	balls := 0
	for _, t := range f.Tracks {
		if _, dup := seen[t.TrackID]; dup {
			return violation(f.Index, t.TrackID, "duplicate track id")
		}
		seen[t.TrackID] = struct{}{}

		switch t.Kind {
		case KindPlayer:
		case KindBall:
			balls++
			if balls > 1 {
				return violation(f.Index, t.TrackID, "more than one ball track")
			}
		default:
			return violation(f.Index, t.TrackID, "unknown track kind %d", uint8(t.Kind))
		}

		if !t.Box.Valid() {
			return violation(f.Index, t.TrackID, "malformed bounding box %+v", t.Box)
		}
		if !finite(t.Position) {
			return violation(f.Index, t.TrackID, "non-finite position %+v", t.Position)
		}
	}
	return nil
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
