// Package repo keeps analysis results in a SQL database and serves them as
// engine sessions, one model per session.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Storey/internal/engine"
	"Storey/internal/engine/snapshot"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS combinations (
		model TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (model, name)
	)`,
	`CREATE TABLE IF NOT EXISTS story_drifts (
		model TEXT NOT NULL,
		position INTEGER NOT NULL,
		story TEXT NOT NULL,
		load_case TEXT NOT NULL,
		step_type TEXT NOT NULL DEFAULT '',
		direction TEXT NOT NULL,
		drift DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (model, position)
	)`,
	`CREATE TABLE IF NOT EXISTS joint_drifts (
		model TEXT NOT NULL,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		story TEXT NOT NULL,
		load_case TEXT NOT NULL,
		step_type TEXT NOT NULL DEFAULT '',
		disp_x DOUBLE PRECISION NOT NULL,
		disp_y DOUBLE PRECISION NOT NULL,
		drift_x DOUBLE PRECISION NOT NULL DEFAULT 0,
		drift_y DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (model, position)
	)`,
}

type Repository struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the result tables.
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverPostgres:
		dsn = withSSLMode(dsn)
	case DriverSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// an in-memory database lives only as long as its one connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	r := &Repository{db: db, driver: driver}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func withSSLMode(dsn string) string {
	if dsn == "" {
		dsn = "user=postgres dbname=postgres password=password sslmode=disable"
	}
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&sslmode=require"
		}
		return dsn + "?sslmode=require"
	}
	return dsn + " sslmode=require"
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the $n form postgres expects.
func (r *Repository) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Import replaces the stored results of the snapshot's model.
func (r *Repository) Import(ctx context.Context, s *snapshot.Snapshot) error {
	if s.Model == "" {
		return errors.New("import: snapshot has no model name")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range []string{"combinations", "story_drifts", "joint_drifts"} {
		if _, err := tx.ExecContext(ctx, r.rebind("DELETE FROM "+t+" WHERE model=?"), s.Model); err != nil {
			return fmt.Errorf("import: clear %s: %w", t, err)
		}
	}
	for i, c := range s.Combinations {
		if _, err := tx.ExecContext(ctx, r.rebind(
			"INSERT INTO combinations (model, position, name) VALUES (?, ?, ?)"),
			s.Model, i, c); err != nil {
			return fmt.Errorf("import: combination %q: %w", c, err)
		}
	}
	for i, d := range s.StoryDrifts {
		if _, err := tx.ExecContext(ctx, r.rebind(
			"INSERT INTO story_drifts (model, position, story, load_case, step_type, direction, drift) VALUES (?, ?, ?, ?, ?, ?, ?)"),
			s.Model, i, d.Story, d.LoadCase, d.StepType, d.Direction, d.Drift); err != nil {
			return fmt.Errorf("import: story drift %d: %w", i, err)
		}
	}
	for i, j := range s.JointDrifts {
		if _, err := tx.ExecContext(ctx, r.rebind(
			"INSERT INTO joint_drifts (model, position, label, story, load_case, step_type, disp_x, disp_y, drift_x, drift_y) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
			s.Model, i, j.Label, j.Story, j.LoadCase, j.StepType, j.DispX, j.DispY, j.DriftX, j.DriftY); err != nil {
			return fmt.Errorf("import: joint drift %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Models lists the stored models by name.
func (r *Repository) Models(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT model FROM combinations ORDER BY model")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	models := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Open makes the repository an engine.Opener for its stored models.
func (r *Repository) Open(ctx context.Context, model string) (engine.Session, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind("SELECT COUNT(*) FROM combinations WHERE model=?"), model).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnavailable, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: model %q not stored", engine.ErrUnavailable, model)
	}
	return &session{repo: r, model: model}, nil
}
