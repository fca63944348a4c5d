// Command pitch-replay replays a recorded detections feed through the
// tactical state engine and reports possession, passes and formations.
//
// Each feed line is one frame:
//
//	{"frame_index": 0, "image": "frames/0000.png",
//	 "tracks": [{"track_id": 7, "kind": "player", "bbox": [x1, y1, x2, y2], "raw_team": "home"}]}
//
// When "image" is set players are classified from their kit colours in
// that image (PNG or JPEG, relative to the feed file); otherwise the
// upstream "raw_team" labels are used.
//
// Usage:
//
//	go run ./cmd/pitch-replay -input match.jsonl [flags]
//	go run ./cmd/pitch-replay migrate [-db path] <up|down|status|version N|force N|help>
//
// Flags:
//
//	-input          Detections feed (required)
//	-config         Tuning JSON (default: built-in defaults)
//	-db             SQLite run store; empty disables persistence
//	-export         Write per-frame snapshots as "<frame_index> <json>" lines
//	-report         Write the possession HTML report
//	-report-stride  Frames between report timeline samples (default: 30)
//	-formation-png  Write a formation plot of the last frame
//	-listen         Serve the live/run API and debug routes on this address
//	-diag           Log possession switches and passes
//	-trace          Log every frame
//	-version        Print version and exit
//
// A precondition violation in the feed stops the run; the offending frame
// index and track id are printed and the command exits with status 2.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/pitch.report/internal/api"
	"github.com/banshee-data/pitch.report/internal/config"
	"github.com/banshee-data/pitch.report/internal/db"
	"github.com/banshee-data/pitch.report/internal/fsutil"
	"github.com/banshee-data/pitch.report/internal/monitoring"
	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
	"github.com/banshee-data/pitch.report/internal/version"
)

// Exit statuses.
const (
	exitOK           = 0
	exitError        = 1
	exitPrecondition = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("pitch-replay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	input := fs.String("input", "", "Detections feed, JSON lines (required)")
	configPath := fs.String("config", "", "Tuning config JSON (default: built-in defaults)")
	dbPath := fs.String("db", "", "SQLite run store (optional)")
	exportPath := fs.String("export", "", "Snapshot export path (optional)")
	reportPath := fs.String("report", "", "Possession HTML report path (optional)")
	reportStride := fs.Int("report-stride", 30, "Frames between report timeline samples")
	formationPath := fs.String("formation-png", "", "Formation PNG of the last frame (optional)")
	listen := fs.String("listen", "", "Serve the API and debug routes on this address (optional)")
	diag := fs.Bool("diag", false, "Log possession switches and passes")
	trace := fs.Bool("trace", false, "Log every frame")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	if *input == "" {
		fmt.Fprintln(stderr, "Error: -input flag is required")
		fs.Usage()
		return exitError
	}

	logger := log.New(stderr, "", log.LstdFlags)
	monitoring.SetLogger(logger.Printf)
	var diagW, traceW io.Writer
	if *diag {
		diagW = stderr
	}
	if *trace {
		traceW = stderr
	}
	match.SetLogWriters(stderr, diagW, traceW)

	tuning := config.DefaultTuningConfig()
	if *configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}

	var store *db.DB
	if *dbPath != "" {
		var err error
		if store, err = db.NewDB(*dbPath); err != nil {
			fmt.Fprintf(stderr, "Error: failed to open run store: %v\n", err)
			return exitError
		}
		defer store.Close()
	}

	live := &liveState{}
	var server *http.Server
	if *listen != "" {
		var err error
		if server, err = newDebugServer(*listen, store, live); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("HTTP server error: %v", err)
			}
		}()
		logger.Printf("serving API and debug routes on %s", *listen)
		defer shutdown(server, logger)
	}

	res, err := replay(ctx, replayOptions{
		Input:         *input,
		FS:            fsutil.OSFileSystem{},
		Tuning:        tuning,
		ExportPath:    *exportPath,
		ReportPath:    *reportPath,
		FormationPath: *formationPath,
		ReportStride:  *reportStride,
		Store:         store,
		Live:          live,
	})
	if err != nil {
		var pe *pitch.PreconditionError
		if errors.As(err, &pe) {
			fmt.Fprintf(stderr, "Error: %v\n", pe)
			fmt.Fprintf(stderr, "frame_index=%d track_id=%d\n", pe.FrameIndex, pe.TrackID)
			return exitPrecondition
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	printSummary(stdout, res, tuning.GetFPS())

	if server != nil {
		logger.Printf("replay finished; serving until interrupted")
		<-ctx.Done()
	}
	return exitOK
}

func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "pitch.db", "SQLite run store")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if err := db.RunMigrateCommand(fs.Args(), *dbPath, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func newDebugServer(addr string, store *db.DB, live *liveState) (*http.Server, error) {
	mux := http.NewServeMux()
	if store != nil {
		// mount the admin debugging routes (reachable from loopback or over Tailscale)
		if err := store.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	apiMux := api.NewServer(store, live.get).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))
	return &http.Server{
		Addr:              addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func shutdown(server *http.Server, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("HTTP server shutdown error: %v", err)
	}
}

func printSummary(w io.Writer, res *replayResult, fps float64) {
	s := res.Summary
	if res.RunID != "" {
		fmt.Fprintf(w, "Run:              %s\n", res.RunID)
	}
	fmt.Fprintf(w, "Frames:           %d\n", s.TotalFrames)
	fmt.Fprintf(w, "Possessed frames: %d (%s)\n", s.PossessedFrames, match.FormatDuration(s.PossessedFrames, fps))
	fmt.Fprintf(w, "Passes:           %d\n", s.TotalPasses)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-4s %-20s %10s %8s %7s\n", "", "Team", "Possession", "Time", "Passes")
	for _, t := range s.Teams {
		fmt.Fprintf(w, "%-4s %-20s %9.1f%% %8s %7d\n", t.Abbreviation, t.Name, t.PossessionPercent, t.PossessionTime, t.Passes)
	}
}
