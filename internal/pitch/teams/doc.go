// Package teams stabilises per-track team labels over time.
//
// Each player track keeps a bounded history of raw colour classifications.
// The settled label is the mode of that window, so a single frame lost to
// a shadow, an occlusion or a ball boy does not flip a player's team.
// Histories are keyed by tracker id and purged by absence; a track id that
// reappears after purging starts from scratch.
package teams
