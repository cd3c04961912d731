package main

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/DimaJoyti/go-coffee/internal/kitchen/config"
	"github.com/DimaJoyti/go-coffee/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one versioned schema change, embedded into the binary so
// the migrate command needs nothing but a reachable database at runtime.
type migration struct {
	version string
	name    string
	upSQL   string
}

func newMigrateCommand(configPath *string, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(*configPath, log)
		},
	}
}

func runMigrate(configPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := ensureMigrationTable(db); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	var ran int
	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.version, m.name, err)
		}
		log.WithField("version", m.version).WithField("name", m.name).Info("applied migration")
		ran++
	}

	if ran == 0 {
		log.Info("schema is up to date, no migrations applied")
	} else {
		log.WithField("count", ran).Info("migrations applied")
	}
	return nil
}

func ensureMigrationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}

// loadMigrations reads every embedded *.up.sql file, deriving each
// migration's version and name from its filename
// (<version>_<name>.up.sql), and returns them ordered by version.
func loadMigrations() ([]migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, err
		}
		version, label, found := strings.Cut(strings.TrimSuffix(name, ".up.sql"), "_")
		if !found {
			return nil, fmt.Errorf("invalid migration filename %q, expected <version>_<name>.up.sql", name)
		}
		migrations = append(migrations, migration{version: version, name: label, upSQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].version < migrations[j].version })
	return migrations, nil
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.upSQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name); err != nil {
		return err
	}
	return tx.Commit()
}
