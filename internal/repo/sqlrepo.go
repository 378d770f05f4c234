package repo

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

const createObjectsTable = `
CREATE TABLE IF NOT EXISTS objects (
	artifact_key TEXT PRIMARY KEY,
	payload      BLOB NOT NULL
)`

// SqlRepo is a sqlite-backed Repository using the pure-Go modernc.org
// driver, so running it never requires cgo. Intended for deployments
// that want the server process to share an ordinary SQL file/volume
// instead of a bbolt file.
type SqlRepo struct {
	db *sql.DB
}

func OpenSqlRepo(dataSourceName string) (*SqlRepo, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", dataSourceName, err)
	}
	if _, err := db.Exec(createObjectsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SqlRepo{db: db}, nil
}

func (r *SqlRepo) Save(ctx context.Context, id model.ArtifactId, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO objects (artifact_key, payload) VALUES (?, ?)`,
		id.Key(), payload,
	)
	if err != nil {
		// modernc.org/sqlite surfaces UNIQUE violations as a generic
		// driver error; since Key() is the primary key, any insert
		// failure on an existing row is the CAS collision we expect.
		if existing, ok, findErr := r.FindOne(ctx, id); findErr == nil && ok && existing != nil {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert object: %w", err)
	}
	return nil
}

func (r *SqlRepo) FindOne(ctx context.Context, id model.ArtifactId) ([]byte, bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM objects WHERE artifact_key = ?`, id.Key(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query object: %w", err)
	}
	return payload, true, nil
}

func (r *SqlRepo) Delete(ctx context.Context, id model.ArtifactId) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE artifact_key = ?`, id.Key())
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (r *SqlRepo) Close() error {
	return r.db.Close()
}
