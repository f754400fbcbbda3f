package store

import (
	"context"
	"errors"
)

// ReadConfigFlag returns the value stored under key and whether it exists.
func (s *Store) ReadConfigFlag(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.Pool.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if err = mapNotFound(err); errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetConfigFlag(ctx context.Context, key, value string) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO config (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}
