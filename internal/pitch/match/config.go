package match

import (
	"image/color"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/colour"
	"github.com/banshee-data/pitch.report/internal/pitch/formation"
	"github.com/banshee-data/pitch.report/internal/pitch/possession"
	"github.com/banshee-data/pitch.report/internal/pitch/teams"
)

// NeutralColour tints the ball trail while nobody has settled possession.
var NeutralColour = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// TeamStyle is the display identity of one team.
type TeamStyle struct {
	Name         string
	Abbreviation string
	Colour       color.RGBA
}

// Config collects the component configurations for one run.
type Config struct {
	Colour        colour.Config
	Teams         teams.Config
	Possession    possession.Config
	Formation     formation.Config
	TrailCapacity int
	FPS           float64
	Home, Away    TeamStyle
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig. Colours
// that do not parse fall back to NeutralColour; LoadTuningConfig has
// already rejected them for file-based configs.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Colour:        colour.ConfigFromTuning(cfg),
		Teams:         teams.ConfigFromTuning(cfg),
		Possession:    possession.ConfigFromTuning(cfg),
		Formation:     formation.ConfigFromTuning(cfg),
		TrailCapacity: cfg.GetBallTrailCapacity(),
		FPS:           cfg.GetFPS(),
		Home:          styleFrom(cfg.GetHome()),
		Away:          styleFrom(cfg.GetAway()),
	}
}

func styleFrom(tc config.TeamConfig) TeamStyle {
	c, err := config.ParseHexColour(tc.Colour)
	if err != nil {
		c = NeutralColour
	}
	return TeamStyle{Name: tc.Name, Abbreviation: tc.Abbreviation, Colour: c}
}

// Style returns the display identity for a label. Non-team labels get
// their label name and NeutralColour.
func (c Config) Style(team pitch.TeamLabel) TeamStyle {
	switch team {
	case pitch.Home:
		return c.Home
	case pitch.Away:
		return c.Away
	default:
		return TeamStyle{Name: team.String(), Colour: NeutralColour}
	}
}
