package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// legacy databases may hold same-day duplicates, dedupe them before adding it
//
//go:embed constraints.sql
var constraintsSQL string

// Migrate creates the tables when missing. With withConstraints it also adds
// the one-entry-per-user-per-day unique constraint.
func Migrate(ctx context.Context, pool *pgxpool.Pool, withConstraints bool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Debugln("db schema applied")

	if !withConstraints {
		return nil
	}

	if _, err := pool.Exec(ctx, constraintsSQL); err != nil {
		return fmt.Errorf("apply constraints: %w", err)
	}
	log.Debugln("db constraints applied")

	return nil
}
