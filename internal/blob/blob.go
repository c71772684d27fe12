package blob

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Store is the key -> base64 payload mapping backing store-kind
// attachments.
type Store struct {
	DB *sql.DB
}

// Save inserts or replaces a payload under key.
func (s Store) Save(ctx context.Context, key, payload, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.ExecContext(ctx, `INSERT INTO blobs(key,payload,name,created_at) VALUES (?,?,?,?)
ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, name=excluded.name`, key, payload, nullable(name), now)
	return err
}

// Get returns the payload stored under key, or ErrNotFound.
func (s Store) Get(ctx context.Context, key string) (string, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload FROM blobs WHERE key=?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return payload, err
}

// Delete removes the payload stored under key. Deleting an absent key
// returns ErrNotFound.
func (s Store) Delete(ctx context.Context, key string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM blobs WHERE key=?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
