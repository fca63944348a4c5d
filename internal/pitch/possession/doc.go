// Package possession decides which team holds the ball and when a change
// of possession is real.
//
// The tracker is a hysteresis filter. A new team must be the closest
// qualifying team to the ball for SwitchStreakFrames frames (not
// necessarily adjacent: frames without a qualifying player leave the
// streak untouched) before possession switches, so a single misclassified
// frame or a contested 50/50 ball does not register a pass.
//
// State is an explicit value owned by the caller and threaded through
// Tracker.Update; the Tracker itself only holds configuration.
package possession
