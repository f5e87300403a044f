package registrydb

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opus-domini/sentinel/pkg/sentinelerr"
	"github.com/opus-domini/sentinel/pkg/types"
)

// Registry owns a pgx connection pool over the sources table.
type Registry struct {
	pool *pgxpool.Pool
}

// Connect opens a pgxpool against databaseURL.
func Connect(ctx context.Context, databaseURL string) (*Registry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &sentinelerr.DbError{Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &sentinelerr.DbError{Op: "ping", Err: err}
	}
	return &Registry{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close() {
	r.pool.Close()
}

// ConnectedAddr exposes the pool's config target for building a
// health.TCPChecker without re-parsing the DSN elsewhere.
func (r *Registry) ConnectedAddr() string {
	cfg := r.pool.Config().ConnConfig
	return cfg.Host + ":" + strconv.Itoa(int(cfg.Port))
}

// Create inserts a new source and returns it with its assigned id and
// timestamps populated.
func (r *Registry) Create(ctx context.Context, s types.Source) (types.Source, error) {
	configJSON, err := json.Marshal(s.Config)
	if err != nil {
		return types.Source{}, &sentinelerr.DbError{Op: "marshal config", Err: err}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO sources (name, type, config, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING id, created_at, updated_at`,
		s.Name, s.Type, configJSON, s.IsActive)

	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return types.Source{}, &sentinelerr.DbError{Op: "insert source", Err: err}
	}
	return s, nil
}

// Get returns the source with the given id, or NotFound.
func (r *Registry) Get(ctx context.Context, id int64) (types.Source, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, type, config, is_active, created_at, updated_at
		FROM sources WHERE id = $1`, id)
	return scanSource(row, id)
}

// List returns every source in the registry, ordered by id.
func (r *Registry) List(ctx context.Context) ([]types.Source, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, type, config, is_active, created_at, updated_at
		FROM sources ORDER BY id`)
	if err != nil {
		return nil, &sentinelerr.DbError{Op: "list sources", Err: err}
	}
	defer rows.Close()

	var sources []types.Source
	for rows.Next() {
		var s types.Source
		var configJSON []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &configJSON, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, &sentinelerr.DbError{Op: "scan source", Err: err}
		}
		if err := json.Unmarshal(configJSON, &s.Config); err != nil {
			return nil, &sentinelerr.DbError{Op: "unmarshal config", Err: err}
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &sentinelerr.DbError{Op: "iterate sources", Err: err}
	}
	return sources, nil
}

// Update merges the fields of patch selected by fields into the existing source and
// persists the result, returning the merged row. Only the fields present
// in patch.Config are merged into the existing config map; the rest of
// the existing config survives, matching the original's partial-update
// behavior on PUT /sources/{id}.
func (r *Registry) Update(ctx context.Context, id int64, patch types.Source, fields UpdateFields) (types.Source, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return types.Source{}, err
	}

	if fields.Name {
		existing.Name = patch.Name
	}
	if fields.Type {
		existing.Type = patch.Type
	}
	if fields.IsActive {
		existing.IsActive = patch.IsActive
	}
	if fields.Config {
		if existing.Config == nil {
			existing.Config = make(map[string]string)
		}
		for k, v := range patch.Config {
			existing.Config[k] = v
		}
	}

	configJSON, err := json.Marshal(existing.Config)
	if err != nil {
		return types.Source{}, &sentinelerr.DbError{Op: "marshal config", Err: err}
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE sources SET name=$2, type=$3, config=$4, is_active=$5, updated_at=now()
		WHERE id=$1
		RETURNING id, name, type, config, is_active, created_at, updated_at`,
		id, existing.Name, existing.Type, configJSON, existing.IsActive)

	return scanSource(row, id)
}

// UpdateFields selects which fields of a patch Source were provided by
// the caller, so Update can merge rather than overwrite.
type UpdateFields struct {
	Name     bool
	Type     bool
	Config   bool
	IsActive bool
}

// Delete removes a source by id.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return &sentinelerr.DbError{Op: "delete source", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &sentinelerr.NotFound{Kind: "source", ID: idString(id)}
	}
	return nil
}

func scanSource(row pgx.Row, id int64) (types.Source, error) {
	var s types.Source
	var configJSON []byte
	err := row.Scan(&s.ID, &s.Name, &s.Type, &configJSON, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return types.Source{}, &sentinelerr.NotFound{Kind: "source", ID: idString(id)}
	}
	if err != nil {
		return types.Source{}, &sentinelerr.DbError{Op: "scan source", Err: err}
	}
	if err := json.Unmarshal(configJSON, &s.Config); err != nil {
		return types.Source{}, &sentinelerr.DbError{Op: "unmarshal config", Err: err}
	}
	return s, nil
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
