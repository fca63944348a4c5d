// Package match drives one run of the tactical engine.
//
// An Engine consumes validated frames with settled team labels and owns
// the per-run state: possession, the ball trail and the pass log. A
// Pipeline sits in front of it for callers that start from frame images
// or raw per-frame labels, adding kit classification and label inertia.
//
// Both are frame-sequential and not safe for concurrent use. A
// *pitch.PreconditionError from either is fatal for the run.
package match
