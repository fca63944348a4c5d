package db

import (
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand against the embedded
// migrations. Output goes to out.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		return fmt.Errorf("failed to get migrations filesystem: %w", err)
	}

	// Open without running migrations; they are what we manage here.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(migrationsFS); err != nil {
			return err
		}
		return printStatus(out, database, migrationsFS)

	case "down":
		if err := database.MigrateDown(migrationsFS); err != nil {
			return err
		}
		return printStatus(out, database, migrationsFS)

	case "status":
		return printStatus(out, database, migrationsFS)

	case "version":
		if len(args) < 2 {
			return fmt.Errorf("usage: pitch-replay migrate version <version_number>")
		}
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := database.MigrateTo(migrationsFS, uint(v)); err != nil {
			return err
		}
		return printStatus(out, database, migrationsFS)

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: pitch-replay migrate force <version_number>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if err := database.MigrateForce(migrationsFS, v); err != nil {
			return err
		}
		return printStatus(out, database, migrationsFS)

	case "help":
		PrintMigrateHelp(out)
		return nil

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}
}

func printStatus(out io.Writer, database *DB, migrationsFS fs.FS) error {
	status, err := database.GetMigrationStatus(migrationsFS)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "=== Migration Status ===")
	fmt.Fprintf(out, "Current version: %d\n", status.CurrentVersion)
	fmt.Fprintf(out, "Latest available: %d\n", status.LatestVersion)
	fmt.Fprintf(out, "Dirty: %v\n", status.Dirty)
	if status.Dirty {
		fmt.Fprintln(out, "\nDatabase is in a dirty state. Inspect it, then run: pitch-replay migrate force <version>")
	} else if status.UpToDate() {
		fmt.Fprintln(out, "Database is up to date.")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprintln(out, "Database Migration Commands")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: pitch-replay migrate [-db path] <command>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  up              Apply all pending migrations")
	fmt.Fprintln(out, "  down            Rollback one migration")
	fmt.Fprintln(out, "  status          Show current migration status and version")
	fmt.Fprintln(out, "  version <N>     Migrate to specific version N")
	fmt.Fprintln(out, "  force <N>       Force migration version to N (recovery only)")
	fmt.Fprintln(out, "  help            Show this help message")
}
