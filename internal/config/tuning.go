package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Possession anchor modes.
const (
	AnchorPosition = "position" // distance from the track position
	AnchorFeet     = "feet"     // distance from the nearer bottom bbox corner
)

// TeamConfig describes one side of the match.
type TeamConfig struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
	// Colour is a "#rrggbb" string used to tag the ball trail.
	Colour string `json:"colour,omitempty"`
}

// TuningConfig represents the root configuration for the tactical engine.
// Every field is optional; the Get* accessors supply the defaults so a
// partial file is safe.
type TuningConfig struct {
	// Team inertia classifier
	HistoryWindowSize           *int `json:"history_window_size,omitempty"`
	MinHistoryForClassification *int `json:"min_history_for_classification,omitempty"`
	TrackStalenessFrames        *int `json:"track_staleness_frames,omitempty"`

	// Colour classifier
	ColourMinPixels *int `json:"colour_min_pixels,omitempty"`

	// Possession tracker
	PossessionDistanceThreshold  *float64 `json:"possession_distance_threshold,omitempty"`
	PossessionSwitchStreakFrames *int     `json:"possession_switch_streak_frames,omitempty"`
	PossessionAnchor             *string  `json:"possession_anchor,omitempty"` // "position" or "feet"

	// Formation geometry
	NearestTeammatesK *int     `json:"nearest_teammates_k,omitempty"`
	FieldWidth        *float64 `json:"field_width,omitempty"`
	FieldHeight       *float64 `json:"field_height,omitempty"`

	// Ball trail
	BallTrailCapacity *int `json:"ball_trail_capacity,omitempty"`

	// Reporting
	FPS *float64 `json:"fps,omitempty"`

	Home *TeamConfig `json:"home,omitempty"`
	Away *TeamConfig `json:"away,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	home, away := e.GetHome(), e.GetAway()
	return &TuningConfig{
		HistoryWindowSize:            ptrInt(e.GetHistoryWindowSize()),
		MinHistoryForClassification:  ptrInt(e.GetMinHistoryForClassification()),
		TrackStalenessFrames:         ptrInt(e.GetTrackStalenessFrames()),
		ColourMinPixels:              ptrInt(e.GetColourMinPixels()),
		PossessionDistanceThreshold:  ptrFloat64(e.GetPossessionDistanceThreshold()),
		PossessionSwitchStreakFrames: ptrInt(e.GetPossessionSwitchStreakFrames()),
		PossessionAnchor:             ptrString(e.GetPossessionAnchor()),
		NearestTeammatesK:            ptrInt(e.GetNearestTeammatesK()),
		FieldWidth:                   ptrFloat64(e.GetFieldWidth()),
		FieldHeight:                  ptrFloat64(e.GetFieldHeight()),
		BallTrailCapacity:            ptrInt(e.GetBallTrailCapacity()),
		FPS:                          ptrFloat64(e.GetFPS()),
		Home:                         &home,
		Away:                         &away,
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pitch/match/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.HistoryWindowSize != nil && *c.HistoryWindowSize < 1 {
		return fmt.Errorf("history_window_size must be at least 1, got %d", *c.HistoryWindowSize)
	}
	if c.MinHistoryForClassification != nil {
		if *c.MinHistoryForClassification < 1 {
			return fmt.Errorf("min_history_for_classification must be at least 1, got %d", *c.MinHistoryForClassification)
		}
		if *c.MinHistoryForClassification > c.GetHistoryWindowSize() {
			return fmt.Errorf("min_history_for_classification (%d) exceeds history_window_size (%d)",
				*c.MinHistoryForClassification, c.GetHistoryWindowSize())
		}
	}
	if c.TrackStalenessFrames != nil && *c.TrackStalenessFrames < 0 {
		return fmt.Errorf("track_staleness_frames must be non-negative, got %d", *c.TrackStalenessFrames)
	}
	if c.ColourMinPixels != nil && *c.ColourMinPixels < 0 {
		return fmt.Errorf("colour_min_pixels must be non-negative, got %d", *c.ColourMinPixels)
	}
	if c.PossessionDistanceThreshold != nil {
		d := *c.PossessionDistanceThreshold
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return fmt.Errorf("possession_distance_threshold must be positive and finite, got %f", d)
		}
	}
	if c.PossessionSwitchStreakFrames != nil && *c.PossessionSwitchStreakFrames < 1 {
		return fmt.Errorf("possession_switch_streak_frames must be at least 1, got %d", *c.PossessionSwitchStreakFrames)
	}
	if c.PossessionAnchor != nil {
		switch *c.PossessionAnchor {
		case AnchorPosition, AnchorFeet:
		default:
			return fmt.Errorf("possession_anchor must be %q or %q, got %q", AnchorPosition, AnchorFeet, *c.PossessionAnchor)
		}
	}
	if c.NearestTeammatesK != nil && *c.NearestTeammatesK < 0 {
		return fmt.Errorf("nearest_teammates_k must be non-negative, got %d", *c.NearestTeammatesK)
	}
	if c.FieldWidth != nil && *c.FieldWidth <= 0 {
		return fmt.Errorf("field_width must be positive, got %f", *c.FieldWidth)
	}
	if c.FieldHeight != nil && *c.FieldHeight <= 0 {
		return fmt.Errorf("field_height must be positive, got %f", *c.FieldHeight)
	}
	if c.BallTrailCapacity != nil && *c.BallTrailCapacity < 1 {
		return fmt.Errorf("ball_trail_capacity must be at least 1, got %d", *c.BallTrailCapacity)
	}
	if c.FPS != nil && *c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %f", *c.FPS)
	}
	for side, team := range map[string]*TeamConfig{"home": c.Home, "away": c.Away} {
		if team == nil {
			continue
		}
		if team.Name == "" {
			return fmt.Errorf("%s.name must not be empty", side)
		}
		if team.Colour != "" {
			if _, err := ParseHexColour(team.Colour); err != nil {
				return fmt.Errorf("%s.colour: %w", side, err)
			}
		}
	}
	return nil
}

// GetHistoryWindowSize returns the history_window_size value or the default.
func (c *TuningConfig) GetHistoryWindowSize() int {
	if c.HistoryWindowSize == nil {
		return 12
	}
	return *c.HistoryWindowSize
}

// GetMinHistoryForClassification returns the min_history_for_classification value or the default.
func (c *TuningConfig) GetMinHistoryForClassification() int {
	if c.MinHistoryForClassification == nil {
		return 3
	}
	return *c.MinHistoryForClassification
}

// GetTrackStalenessFrames returns the track_staleness_frames value or the default.
func (c *TuningConfig) GetTrackStalenessFrames() int {
	if c.TrackStalenessFrames == nil {
		return 30
	}
	return *c.TrackStalenessFrames
}

// GetColourMinPixels returns the colour_min_pixels value or the default.
func (c *TuningConfig) GetColourMinPixels() int {
	if c.ColourMinPixels == nil {
		return 20
	}
	return *c.ColourMinPixels
}

// GetPossessionDistanceThreshold returns the possession_distance_threshold value or the default.
func (c *TuningConfig) GetPossessionDistanceThreshold() float64 {
	if c.PossessionDistanceThreshold == nil {
		return 45.0 // pixels
	}
	return *c.PossessionDistanceThreshold
}

// GetPossessionSwitchStreakFrames returns the possession_switch_streak_frames value or the default.
func (c *TuningConfig) GetPossessionSwitchStreakFrames() int {
	if c.PossessionSwitchStreakFrames == nil {
		return 20
	}
	return *c.PossessionSwitchStreakFrames
}

// GetPossessionAnchor returns the possession_anchor value or the default.
func (c *TuningConfig) GetPossessionAnchor() string {
	if c.PossessionAnchor == nil || *c.PossessionAnchor == "" {
		return AnchorPosition
	}
	return *c.PossessionAnchor
}

// GetNearestTeammatesK returns the nearest_teammates_k value or the default.
func (c *TuningConfig) GetNearestTeammatesK() int {
	if c.NearestTeammatesK == nil {
		return 2
	}
	return *c.NearestTeammatesK
}

// GetFieldWidth returns the field_width value or the default.
func (c *TuningConfig) GetFieldWidth() float64 {
	if c.FieldWidth == nil {
		return 1920
	}
	return *c.FieldWidth
}

// GetFieldHeight returns the field_height value or the default.
func (c *TuningConfig) GetFieldHeight() float64 {
	if c.FieldHeight == nil {
		return 1080
	}
	return *c.FieldHeight
}

// GetBallTrailCapacity returns the ball_trail_capacity value or the default.
func (c *TuningConfig) GetBallTrailCapacity() int {
	if c.BallTrailCapacity == nil {
		return 30
	}
	return *c.BallTrailCapacity
}

// GetFPS returns the fps value or the default.
func (c *TuningConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 30
	}
	return *c.FPS
}

// GetHome returns the home team or the default.
func (c *TuningConfig) GetHome() TeamConfig {
	if c.Home == nil {
		return TeamConfig{Name: "Home", Abbreviation: "HOM", Colour: "#e84393"}
	}
	return *c.Home
}

// GetAway returns the away team or the default.
func (c *TuningConfig) GetAway() TeamConfig {
	if c.Away == nil {
		return TeamConfig{Name: "Away", Abbreviation: "AWY", Colour: "#1e8449"}
	}
	return *c.Away
}
