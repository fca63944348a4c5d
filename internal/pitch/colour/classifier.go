package colour

import (
	"image"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/pitch"
)

// NoneFilter is the filter name reported when no filter has enough
// matching pixels.
const NoneFilter = "none"

// defaultCounter is swapped for the OpenCV counter in gocv builds.
var defaultCounter PixelCounter = ImageCounter{}

// Filter is a named set of HSV ranges identifying one kit. The pixel
// counts of all ranges are summed.
type Filter struct {
	Name   string
	Label  pitch.TeamLabel
	Ranges []HSVRange
}

// JerseyCrop selects the part of a player crop that shows the shirt,
// as fractions of the crop's height (Top, Bottom) and width (Left, Right).
type JerseyCrop struct {
	Top, Bottom, Left, Right float64
}

// DefaultJerseyCrop skips the head and the shorts/legs, and trims the
// arms at the sides.
var DefaultJerseyCrop = JerseyCrop{Top: 0.15, Bottom: 0.6, Left: 0.1, Right: 0.9}

// FullCrop inspects the whole region.
var FullCrop = JerseyCrop{Top: 0, Bottom: 1, Left: 0, Right: 1}

// Apply returns the sub-rectangle of b selected by the crop.
func (j JerseyCrop) Apply(b image.Rectangle) image.Rectangle {
	w, h := float64(b.Dx()), float64(b.Dy())
	return image.Rect(
		b.Min.X+int(w*j.Left),
		b.Min.Y+int(h*j.Top),
		b.Min.X+int(w*j.Right),
		b.Min.Y+int(h*j.Bottom),
	).Intersect(b)
}

// Config holds the classifier parameters.
type Config struct {
	// Filters in priority order: on equal counts the earlier filter wins.
	Filters []Filter
	// MinPixels is the minimum matching pixel count for a filter to be
	// reported. A filter with zero matching pixels is never reported.
	MinPixels int
	Crop      JerseyCrop
	// Counter defaults to the package default when nil.
	Counter PixelCounter
}

// DefaultFilters returns the kit filters the engine ships with: referee
// (yellow and black) first, then the home kit (pink) and the away kit
// (white and green).
func DefaultFilters() []Filter {
	yellow := HSVRange{Name: "yellow", Lower: HSV{22, 93, 0}, Upper: HSV{45, 255, 255}}
	black := HSVRange{Name: "black", Lower: HSV{0, 0, 0}, Upper: HSV{179, 255, 45}}
	pink := HSVRange{Name: "pink", Lower: HSV{145, 60, 100}, Upper: HSV{175, 255, 255}}
	white := HSVRange{Name: "white", Lower: HSV{0, 0, 180}, Upper: HSV{179, 30, 255}}
	green := HSVRange{Name: "green", Lower: HSV{40, 40, 40}, Upper: HSV{80, 255, 255}}

	return []Filter{
		{Name: "referee", Label: pitch.Referee, Ranges: []HSVRange{yellow, black}},
		{Name: "home", Label: pitch.Home, Ranges: []HSVRange{pink}},
		{Name: "away", Label: pitch.Away, Ranges: []HSVRange{white, green}},
	}
}

// ConfigFromTuning builds a classifier Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Filters:   DefaultFilters(),
		MinPixels: cfg.GetColourMinPixels(),
		Crop:      DefaultJerseyCrop,
	}
}

// Result is the outcome of classifying one region.
type Result struct {
	Filter string
	Label  pitch.TeamLabel
	Pixels int
}

// Classifier maps an image region to the best matching kit filter. It is
// stateless and safe for concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier. A nil Counter selects the package
// default.
func NewClassifier(cfg Config) *Classifier {
	if cfg.Counter == nil {
		cfg.Counter = defaultCounter
	}
	if cfg.Crop == (JerseyCrop{}) {
		cfg.Crop = FullCrop
	}
	return &Classifier{cfg: cfg}
}

// Classify returns the filter with the most matching pixels, or NoneFilter
// when the region is empty or no filter reaches MinPixels. It never fails.
func (c *Classifier) Classify(region image.Image) Result {
	none := Result{Filter: NoneFilter, Label: pitch.Unclassified}
	if region == nil {
		return none
	}
	r := c.cfg.Crop.Apply(region.Bounds())
	if r.Empty() {
		return none
	}
	jersey := subImage(region, r)

	best := none
	for _, f := range c.cfg.Filters {
		count := 0
		for _, rng := range f.Ranges {
			count += c.cfg.Counter.CountInRange(jersey, rng)
		}
		if count > best.Pixels {
			best = Result{Filter: f.Name, Label: f.Label, Pixels: count}
		}
	}
	if best.Pixels < c.cfg.MinPixels {
		return Result{Filter: NoneFilter, Label: pitch.Unclassified, Pixels: best.Pixels}
	}
	return best
}

// ClassifyLabel is a convenience wrapper returning only the label.
func (c *Classifier) ClassifyLabel(region image.Image) pitch.TeamLabel {
	return c.Classify(region).Label
}
