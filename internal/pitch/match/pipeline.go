package match

import (
	"image"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/colour"
	"github.com/banshee-data/pitch.report/internal/pitch/teams"
)

// Pipeline runs kit classification and label inertia in front of an
// Engine: crop each player, classify the crop, settle the label over the
// track's history, then advance the engine.
type Pipeline struct {
	cropper colour.Cropper
	colours *colour.Classifier
	teams   *teams.Classifier
	engine  *Engine
}

// NewPipeline creates a pipeline and its engine. A nil cropper selects
// colour.SubImageCropper.
func NewPipeline(cfg Config, cropper colour.Cropper) *Pipeline {
	if cropper == nil {
		cropper = colour.SubImageCropper{}
	}
	return &Pipeline{
		cropper: cropper,
		colours: colour.NewClassifier(cfg.Colour),
		teams:   teams.NewClassifier(cfg.Teams),
		engine:  NewEngine(cfg),
	}
}

// Engine exposes the underlying engine for summaries and pass logs.
func (p *Pipeline) Engine() *Engine { return p.engine }

// Teams exposes the label inertia state.
func (p *Pipeline) Teams() *teams.Classifier { return p.teams }

// Process classifies every player from img and advances the run. The
// frame is validated before any classifier state changes.
func (p *Pipeline) Process(img image.Image, frame pitch.Frame) (*Snapshot, error) {
	if err := p.engine.Validate(frame); err != nil {
		opsf("frame %d rejected: %v", frame.Index, err)
		return nil, err
	}
	raws := make(map[int]pitch.TeamLabel)
	for _, t := range frame.Players() {
		raws[t.TrackID] = p.colours.ClassifyLabel(p.cropper.Crop(img, t.Box))
	}
	return p.settle(frame, raws)
}

// ProcessLabels advances the run from raw per-frame labels that were
// classified upstream. Players missing from raws are observed as
// Unclassified.
func (p *Pipeline) ProcessLabels(frame pitch.Frame, raws map[int]pitch.TeamLabel) (*Snapshot, error) {
	if err := p.engine.Validate(frame); err != nil {
		opsf("frame %d rejected: %v", frame.Index, err)
		return nil, err
	}
	observed := make(map[int]pitch.TeamLabel)
	for _, t := range frame.Players() {
		observed[t.TrackID] = raws[t.TrackID]
	}
	return p.settle(frame, observed)
}

func (p *Pipeline) settle(frame pitch.Frame, raws map[int]pitch.TeamLabel) (*Snapshot, error) {
	labels := p.teams.Update(frame.Index, raws)
	return p.engine.ProcessFrame(frame, labels)
}
