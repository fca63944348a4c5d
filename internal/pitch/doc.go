// Package pitch owns the shared data model of the tactical state engine.
//
// Responsibilities: per-frame input types (Frame, Track, BoundingBox),
// the closed TeamLabel enumeration, PassEvent records and the upstream
// contract checks that turn a broken detector/tracker feed into a fatal
// PreconditionError.
//
// Dependency rule: pitch depends on nothing else in this module. The
// component packages (colour, teams, possession, formation, trail, match)
// depend on pitch, never on each other except match, which composes them.
package pitch
