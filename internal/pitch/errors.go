package pitch

import (
	"errors"
	"fmt"
)

// ErrPreconditionViolation is the sentinel wrapped by every
// PreconditionError. Callers test for it with errors.Is.
var ErrPreconditionViolation = errors.New("precondition violation")

// NoTrack marks a PreconditionError that is about the frame as a whole
// rather than one track.
const NoTrack = -1

// PreconditionError reports a broken upstream contract. It is fatal: the
// run must stop, because possession hysteresis cannot recover from a
// corrupted feed.
type PreconditionError struct {
	FrameIndex int64
	TrackID    int
	Reason     string
}

func (e *PreconditionError) Error() string {
	if e.TrackID == NoTrack {
		return fmt.Sprintf("precondition violation at frame %d: %s", e.FrameIndex, e.Reason)
	}
	return fmt.Sprintf("precondition violation at frame %d, track %d: %s", e.FrameIndex, e.TrackID, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPreconditionViolation }

func violation(frame int64, trackID int, format string, args ...interface{}) error {
	return &PreconditionError{
		FrameIndex: frame,
		TrackID:    trackID,
		Reason:     fmt.Sprintf(format, args...),
	}
}
