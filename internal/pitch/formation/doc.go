// Package formation derives per-team shape from one frame of settled
// player positions: nearest-teammate connection lines, the convex hull of
// the team, and a few summary metrics. Everything here is a pure function
// of the current frame; nothing is carried between frames.
package formation
