package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4.5 * vg.Inch
)

var ballColour = color.RGBA{A: 255}

// xy maps frame coordinates to plot coordinates. Frame y grows downwards,
// so it is negated to keep the picture upright.
func xy(p pitch.Point) plotter.XY {
	return plotter.XY{X: p.X, Y: -p.Y}
}

func withAlpha(c color.RGBA, a uint8) color.RGBA {
	c.A = a
	return c
}

// FormationPlot draws one snapshot: hulls, connection lines and players
// per team, the ball trail and the ball.
func FormationPlot(snap *match.Snapshot, cfg match.Config) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Frame %d (%s)", snap.FrameIndex, match.FormatDuration(snap.FrameIndex, cfg.FPS))
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "-y (px)"
	p.X.Min, p.X.Max = 0, cfg.Formation.FieldWidth
	p.Y.Min, p.Y.Max = -cfg.Formation.FieldHeight, 0
	p.Legend.Top = true

	positions := make(map[int]pitch.Point, len(snap.Players))
	for _, pl := range snap.Players {
		positions[pl.TrackID] = pl.Position
	}

	for _, f := range snap.Formations {
		style := cfg.Style(f.Team)

		if f.Polygon != nil {
			ring := make(plotter.XYs, len(f.Polygon))
			for i, v := range f.Polygon {
				ring[i] = xy(v)
			}
			poly, err := plotter.NewPolygon(ring)
			if err != nil {
				return nil, fmt.Errorf("%s hull: %w", f.Team, err)
			}
			poly.Color = withAlpha(style.Colour, 60)
			poly.LineStyle.Color = style.Colour
			poly.LineStyle.Width = vg.Points(1)
			p.Add(poly)
		}

		for _, e := range f.Edges {
			seg, err := plotter.NewLine(plotter.XYs{xy(positions[e.A]), xy(positions[e.B])})
			if err != nil {
				return nil, fmt.Errorf("%s edge %v: %w", f.Team, e, err)
			}
			seg.Color = withAlpha(style.Colour, 160)
			seg.Width = vg.Points(1)
			p.Add(seg)
		}

		if len(f.PlayerIDs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(f.PlayerIDs))
		for i, id := range f.PlayerIDs {
			pts[i] = xy(positions[id])
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s players: %w", f.Team, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: style.Colour, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s %s", style.Name, f.LineUp), sc)
	}

	for _, s := range snap.Segments {
		seg, err := plotter.NewLine(plotter.XYs{xy(s.From), xy(s.To)})
		if err != nil {
			return nil, fmt.Errorf("trail: %w", err)
		}
		seg.Color = s.Colour
		seg.Width = vg.Points(float64(s.Width))
		p.Add(seg)
	}

	if snap.Ball != nil {
		sc, err := plotter.NewScatter(plotter.XYs{xy(snap.Ball.Position)})
		if err != nil {
			return nil, fmt.Errorf("ball: %w", err)
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: ballColour, Radius: vg.Points(3), Shape: draw.RingGlyph{}}
		p.Add(sc)
		p.Legend.Add("ball", sc)
	}
	return p, nil
}

// WriteFormationPNG saves FormationPlot of snap to path.
func WriteFormationPNG(path string, snap *match.Snapshot, cfg match.Config) error {
	p, err := FormationPlot(snap, cfg)
	if err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}

// WriteFormationPNGTo streams FormationPlot of snap to w as PNG.
func WriteFormationPNGTo(w io.Writer, snap *match.Snapshot, cfg match.Config) error {
	p, err := FormationPlot(snap, cfg)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
