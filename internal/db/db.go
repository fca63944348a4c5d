package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/pitch.report/internal/monitoring"
	"github.com/banshee-data/pitch.report/internal/security"
	"github.com/banshee-data/pitch.report/internal/timeutil"
)

var logf = monitoring.Prefixed("[db] ")

// DB is the run store: one row per replay run plus its per-team
// statistics and pass log.
type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// pragmas are applied to every connection we open.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the database and applies PRAGMAs without touching the
// schema. Use it for migration tooling.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps PRAGMAs and the WAL consistent.
	sqlDB.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return &DB{DB: sqlDB, path: path, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database and brings its schema up to the latest
// embedded migration.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.MigrateUp(migrationsFS); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// SetClock replaces the clock used for run timestamps.
func (db *DB) SetClock(c timeutil.Clock) {
	if c == nil {
		c = timeutil.RealClock{}
	}
	db.clock = c
}

// TableStats is the row count of one table.
type TableStats struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// DatabaseStats summarises the store for the admin endpoint.
type DatabaseStats struct {
	TotalSizeMB float64      `json:"total_size_mb"`
	Tables      []TableStats `json:"tables"`
}

var statTables = []string{"runs", "run_team_stats", "pass_events"}

// GetDatabaseStats reports the file size and per-table row counts.
func (db *DB) GetDatabaseStats() (*DatabaseStats, error) {
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to read page_size: %w", err)
	}

	stats := &DatabaseStats{TotalSizeMB: float64(pageCount*pageSize) / (1024 * 1024)}
	for _, table := range statTables {
		var n int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats.Tables = append(stats.Tables, TableStats{Name: table, RowCount: n})
	}
	return stats, nil
}

// AttachAdminRoutes mounts tailsql, a stats endpoint and a backup
// download under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(db.path), db.DB, &tailsql.DBOptions{
		Label: "Pitch runs DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Database size and row counts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetDatabaseStats()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			logf("failed to encode db stats: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.serveBackup))
	return nil
}

func (db *DB) serveBackup(w http.ResponseWriter, r *http.Request) {
	name := security.SanitizeFilename(strings.TrimSuffix(filepath.Base(db.path), filepath.Ext(db.path)))
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-backup-%d.db", name, db.clock.Now().UnixNano()))
	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			logf("failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, backupFile); err != nil {
		logf("failed to stream backup: %v", err)
	}
}
