package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"sync"

	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/fsutil"
	"github.com/banshee-data/pitch.report/internal/monitoring"
	"github.com/banshee-data/pitch.report/internal/pitch/export"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
	"github.com/banshee-data/pitch.report/internal/report"
	"github.com/banshee-data/pitch.report/internal/security"
)

var logf = monitoring.Prefixed("[replay] ")

// liveState holds the latest statistics for the debug API while the
// replay loop runs on another goroutine.
type liveState struct {
	mu      sync.RWMutex
	summary match.Summary
	ok      bool
}

func (l *liveState) set(s match.Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = s
	l.ok = true
}

func (l *liveState) get() (match.Summary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.summary, l.ok
}

type replayOptions struct {
	Input  string
	FS     fsutil.FileSystem
	Tuning *config.TuningConfig

	// Optional outputs; empty disables.
	ExportPath    string
	ReportPath    string
	FormationPath string
	// ReportStride is the timeline sampling interval in frames.
	ReportStride int

	// Store persists the run when set.
	Store *db.DB
	Live  *liveState
}

type replayResult struct {
	RunID   string
	Frames  int
	Summary match.Summary
	Last    *match.Snapshot
}

// replay runs the whole feed through a fresh pipeline. The first error
// stops the run; nothing after it is processed and the stored run, if
// any, is marked aborted.
func replay(ctx context.Context, opts replayOptions) (*replayResult, error) {
	if opts.Tuning == nil {
		opts.Tuning = config.DefaultTuningConfig()
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	cfg := match.ConfigFromTuning(opts.Tuning)
	pipeline := match.NewPipeline(cfg, nil)

	in, err := opts.FS.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer in.Close()

	res := &replayResult{}
	if opts.Store != nil {
		cfgJSON, err := json.Marshal(opts.Tuning)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tuning: %w", err)
		}
		run, err := opts.Store.CreateRun(ctx, opts.Input, string(cfgJSON))
		if err != nil {
			return nil, err
		}
		res.RunID = run.RunID
		logf("run %s started for %s", run.RunID, opts.Input)
	}

	fail := func(cause error) (*replayResult, error) {
		if opts.Store != nil {
			if err := opts.Store.AbortRun(context.WithoutCancel(ctx), res.RunID, cause); err != nil {
				logf("failed to mark run %s aborted: %v", res.RunID, err)
			}
		}
		return res, cause
	}

	var (
		exp     *export.SnapshotWriter
		expFile io.WriteCloser
	)
	if opts.ExportPath != "" {
		if expFile, err = opts.FS.Create(opts.ExportPath); err != nil {
			return fail(fmt.Errorf("failed to create export: %w", err))
		}
		defer func() {
			if expFile != nil {
				expFile.Close()
			}
		}()
		exp = export.NewSnapshotWriter(expFile)
	}

	var timeline *report.Timeline
	if opts.ReportPath != "" {
		timeline = report.NewTimeline(opts.ReportStride)
	}

	feed := newFeedReader(in)
	dir := filepath.Dir(opts.Input)
	for {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("replay interrupted: %w", err))
		}
		ff, err := feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}

		snap, err := processFrame(pipeline, opts.FS, dir, ff)
		if err != nil {
			return fail(err)
		}
		res.Frames++
		res.Last = snap

		if opts.Store != nil {
			for _, p := range snap.Passes {
				if err := opts.Store.InsertPassEvent(ctx, res.RunID, p); err != nil {
					return fail(err)
				}
			}
		}
		if exp != nil {
			if err := exp.Write(snap); err != nil {
				return fail(err)
			}
		}
		if timeline != nil {
			timeline.Add(snap)
		}
		if opts.Live != nil {
			opts.Live.set(pipeline.Engine().Summary())
		}
	}

	res.Summary = pipeline.Engine().Summary()

	if exp != nil {
		if err := exp.Flush(); err != nil {
			return fail(fmt.Errorf("failed to flush export: %w", err))
		}
		err := expFile.Close()
		expFile = nil
		if err != nil {
			return fail(fmt.Errorf("failed to close export: %w", err))
		}
		logf("wrote %d snapshots to %s", exp.Written(), opts.ExportPath)
	}
	if timeline != nil {
		if err := writeWith(opts.FS, opts.ReportPath, func(w io.Writer) error {
			return report.WritePossessionHTML(w, timeline, res.Summary, cfg)
		}); err != nil {
			return fail(err)
		}
		logf("wrote possession report to %s", opts.ReportPath)
	}
	if opts.FormationPath != "" && res.Last != nil {
		last := res.Last
		if err := writeWith(opts.FS, opts.FormationPath, func(w io.Writer) error {
			return report.WriteFormationPNGTo(w, last, cfg)
		}); err != nil {
			return fail(err)
		}
		logf("wrote formation plot of frame %d to %s", last.FrameIndex, opts.FormationPath)
	}

	if opts.Store != nil {
		if err := opts.Store.CompleteRun(ctx, res.RunID, res.Summary); err != nil {
			return res, err
		}
	}
	return res, nil
}

// processFrame classifies from the frame image when the feed names one,
// and from the upstream raw labels otherwise.
func processFrame(p *match.Pipeline, fsys fsutil.FileSystem, dir string, ff feedFrame) (*match.Snapshot, error) {
	if ff.Image == "" {
		return p.ProcessLabels(ff.Frame, ff.Raw)
	}
	path, err := security.ResolveWithin(dir, ff.Image)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", ff.Frame.Index, err)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frame %d: failed to read image: %w", ff.Frame.Index, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("frame %d: failed to decode %s: %w", ff.Frame.Index, ff.Image, err)
	}
	return p.Process(img, ff.Frame)
}

func writeWith(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
