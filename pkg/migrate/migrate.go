// Package migrate applies the schema migrations compiled into every binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// SourceDir is where new migration files are written, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded migration files rooted at their directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Status describes one migration source and whether the database has applied it.
type Status struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: sql db is required")
	}
	if fsys == nil {
		fsys = Migrations()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	results, err := r.provider.Up(ctx)
	r.report(ctx, results)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	r.report(ctx, []*goose.MigrationResult{result})
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Redo rolls back the latest migration and applies it again.
func (r *Runner) Redo(ctx context.Context) error {
	if err := r.Down(ctx); err != nil {
		return err
	}
	result, err := r.provider.UpByOne(ctx)
	r.report(ctx, []*goose.MigrationResult{result})
	if err != nil {
		return fmt.Errorf("migrate redo: %w", err)
	}
	return nil
}

// To moves the schema up or down until target is the newest applied version.
func (r *Runner) To(ctx context.Context, target int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrate: current version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case target == current:
		return nil
	case target > current:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.report(ctx, results)
	if err != nil {
		return fmt.Errorf("migrate to %d: %w", target, err)
	}
	return nil
}

func (r *Runner) Pending(ctx context.Context) (bool, error) {
	return r.provider.HasPending(ctx)
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			Name:      path.Base(row.Source.Path),
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

func (r *Runner) report(ctx context.Context, results []*goose.MigrationResult) {
	if r.logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			r.logg.Error(r.logg.WithFields(ctx, fields), "migration failed", res.Error)
			continue
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration applied")
	}
}
