package dedup

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// SchemaVersion is the latest migration version.
const SchemaVersion = 1

// migrations builds the Go migrations for the registry. Version 1 creates every
// table in foreign-key order and drops them in reverse.
func migrations(r *registry) []*goose.Migration {
	up := func(ctx context.Context, tx *sql.Tx) error {
		for _, t := range r.ordered {
			if err := t.EnsureSchema(ctx, tx); err != nil {
				return fmt.Errorf("create %s: %w", t.Name(), err)
			}
		}
		return nil
	}
	down := func(ctx context.Context, tx *sql.Tx) error {
		for i := len(r.ordered) - 1; i >= 0; i-- {
			t := r.ordered[i]
			if err := t.DropSchema(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	}

	return []*goose.Migration{
		goose.NewGoMigration(1, &goose.GoFunc{RunTx: up}, &goose.GoFunc{RunTx: down}),
	}
}

func (s *Store) provider() (*goose.Provider, error) {
	p, err := goose.NewProvider(s.dialect.Goose, s.db, nil,
		goose.WithGoMigrations(migrations(s.tables)...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return p, nil
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	p, err := s.provider()
	if err != nil {
		return err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		s.logger.Info("migration applied",
			"version", r.Source.Version,
			"duration", r.Duration,
		)
	}
	return nil
}

// Rollback reverts every migration, dropping all tables.
func (s *Store) Rollback(ctx context.Context) error {
	p, err := s.provider()
	if err != nil {
		return err
	}

	results, err := p.DownTo(ctx, 0)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	for _, r := range results {
		s.logger.Info("migration reverted", "version", r.Source.Version)
	}
	return nil
}

// Version returns the applied schema version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	p, err := s.provider()
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
