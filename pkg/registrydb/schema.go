package registrydb

import (
	"context"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
)

// bootstrapSchema is the Source registry's full schema. Pre-release there
// is a single source of truth instead of versioned migration files: one
// idempotent CREATE TABLE IF NOT EXISTS plus its indexes.
const bootstrapSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	type       TEXT NOT NULL,
	config     JSONB NOT NULL DEFAULT '{}',
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sources_is_active ON sources (is_active);
CREATE INDEX IF NOT EXISTS idx_sources_type ON sources (type);
`

// Migrate applies the bootstrap schema. It is idempotent and safe to run
// on every deploy; there is no separate up/down migration chain.
func Migrate(ctx context.Context, databaseURL string) error {
	reg, err := Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer reg.Close()

	if _, err := reg.pool.Exec(ctx, bootstrapSchema); err != nil {
		return &sentinelerr.DbError{Op: "bootstrap schema", Err: err}
	}
	return nil
}
