package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

// WritePossessionHTML renders the run report: possession share over time
// and per-team totals.
func WritePossessionHTML(w io.Writer, tl *Timeline, s match.Summary, cfg match.Config) error {
	samples := tl.Samples()

	x := make([]string, len(samples))
	for i, smp := range samples {
		x[i] = match.FormatDuration(smp.FrameIndex, cfg.FPS)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Possession", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Possession share",
			Subtitle: fmt.Sprintf("frames=%d possessed=%d passes=%d", s.TotalFrames, s.PossessedFrames, s.TotalPasses),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100, Name: "%"}),
	)
	line.SetXAxis(x)
	for _, team := range pitch.Teams {
		style := cfg.Style(team)
		data := make([]opts.LineData, len(samples))
		for i, smp := range samples {
			data[i] = opts.LineData{Value: smp.Share[team]}
		}
		line.AddSeries(style.Name, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: hexColour(style)}),
		)
	}

	names := make([]string, 0, len(s.Teams))
	share := make([]opts.BarData, 0, len(s.Teams))
	passes := make([]opts.BarData, 0, len(s.Teams))
	for _, ts := range s.Teams {
		names = append(names, fmt.Sprintf("%s (%s)", ts.Name, ts.PossessionTime))
		share = append(share, opts.BarData{Value: fmt.Sprintf("%.1f", ts.PossessionPercent)})
		passes = append(passes, opts.BarData{Value: ts.Passes})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Totals", Subtitle: "passes are credited to the team that lost the ball"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("Possession %", share,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		).
		AddSeries("Passes", passes,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(line, bar)
	return page.Render(w)
}

func hexColour(s match.TeamStyle) string {
	return fmt.Sprintf("#%02x%02x%02x", s.Colour.R, s.Colour.G, s.Colour.B)
}
