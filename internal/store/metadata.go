package store

import (
	"context"
	"database/sql"
	"errors"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (q *Queries) SetMetadata(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (q *Queries) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// ListMetadata returns every metadata pair.
func (q *Queries) ListMetadata(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SchemaVersion returns the schema version recorded by the last migration.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	return s.GetMetadata(ctx, metaSchemaVersion)
}

// recordMigration stamps the schema version, and the creation time on first run.
func (s *Store) recordMigration(ctx context.Context, now string) error {
	created, err := s.GetMetadata(ctx, metaCreatedAt)
	if err != nil {
		return err
	}
	if created == "" {
		if err := s.SetMetadata(ctx, metaCreatedAt, now); err != nil {
			return err
		}
	}
	return s.SetMetadata(ctx, metaSchemaVersion, schemaVersion)
}

const (
	metaSchemaVersion = "schema_version"
	metaCreatedAt     = "created_at"
)
