package teams

import (
	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
)

// Config holds the inertia window parameters.
type Config struct {
	HistoryWindowSize           int // raw results kept per track
	MinHistoryForClassification int // results needed before a label is settled
	TrackStalenessFrames        int // frames of absence before a history is purged
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		HistoryWindowSize:           cfg.GetHistoryWindowSize(),
		MinHistoryForClassification: cfg.GetMinHistoryForClassification(),
		TrackStalenessFrames:        cfg.GetTrackStalenessFrames(),
	}
}

type history struct {
	labels   []pitch.TeamLabel // oldest first
	lastSeen int64
}

// Classifier is the team inertia classifier. It is not safe for concurrent
// use.
type Classifier struct {
	cfg       Config
	histories map[int]*history
}

// NewClassifier creates a classifier. Non-positive window parameters are
// raised to 1.
func NewClassifier(cfg Config) *Classifier {
	if cfg.HistoryWindowSize < 1 {
		cfg.HistoryWindowSize = 1
	}
	if cfg.MinHistoryForClassification < 1 {
		cfg.MinHistoryForClassification = 1
	}
	return &Classifier{cfg: cfg, histories: make(map[int]*history)}
}

// Observe appends a raw classification to the track's history, creating
// the history on first sighting and evicting the oldest entry on overflow.
// A history that went stale before this sighting starts over empty.
func (c *Classifier) Observe(frameIndex int64, trackID int, raw pitch.TeamLabel) {
	h, ok := c.histories[trackID]
	if ok && c.stale(h, frameIndex) {
		delete(c.histories, trackID)
		ok = false
	}
	if !ok {
		h = &history{labels: make([]pitch.TeamLabel, 0, c.cfg.HistoryWindowSize)}
		c.histories[trackID] = h
	}
	if len(h.labels) == c.cfg.HistoryWindowSize {
		copy(h.labels, h.labels[1:])
		h.labels = h.labels[:len(h.labels)-1]
	}
	h.labels = append(h.labels, raw)
	h.lastSeen = frameIndex
}

// Label returns the settled label for a track: the mode of its window, or
// Unclassified while the window holds fewer than
// MinHistoryForClassification entries.
func (c *Classifier) Label(trackID int) pitch.TeamLabel {
	h, ok := c.histories[trackID]
	if !ok || len(h.labels) < c.cfg.MinHistoryForClassification {
		return pitch.Unclassified
	}
	return Mode(h.labels)
}

// EvictStale purges histories whose track has not been observed for more
// than TrackStalenessFrames frames before frameIndex, and returns how many
// were purged.
func (c *Classifier) EvictStale(frameIndex int64) int {
	purged := 0
	for id, h := range c.histories {
		if c.stale(h, frameIndex) {
			delete(c.histories, id)
			purged++
		}
	}
	return purged
}

func (c *Classifier) stale(h *history, frameIndex int64) bool {
	return frameIndex-h.lastSeen > int64(c.cfg.TrackStalenessFrames)
}

// Update runs one frame: every raw result is observed, stale histories
// are purged, and the settled label of each observed track is returned.
func (c *Classifier) Update(frameIndex int64, raws map[int]pitch.TeamLabel) map[int]pitch.TeamLabel {
	for id, raw := range raws {
		c.Observe(frameIndex, id, raw)
	}
	c.EvictStale(frameIndex)

	labels := make(map[int]pitch.TeamLabel, len(raws))
	for id := range raws {
		labels[id] = c.Label(id)
	}
	return labels
}

// HistoryLen returns the number of raw results held for a track.
func (c *Classifier) HistoryLen(trackID int) int {
	if h, ok := c.histories[trackID]; ok {
		return len(h.labels)
	}
	return 0
}

// Tracked returns the number of tracks with a live history.
func (c *Classifier) Tracked() int {
	return len(c.histories)
}

// Mode returns the most frequent label in window (oldest first). When
// several labels share the highest count, the one seen most recently wins.
// An empty window yields Unclassified.
func Mode(window []pitch.TeamLabel) pitch.TeamLabel {
	if len(window) == 0 {
		return pitch.Unclassified
	}
	counts := make(map[pitch.TeamLabel]int, 4)
	best := 0
	for _, l := range window {
		counts[l]++
		if counts[l] > best {
			best = counts[l]
		}
	}
	for i := len(window) - 1; i >= 0; i-- {
		if counts[window[i]] == best {
			return window[i]
		}
	}
	return pitch.Unclassified
}
