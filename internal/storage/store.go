// Package storage holds the key-value store that carries session and
// verification tokens across otherwise independent flows.
package storage

import (
	"context"
	"errors"
)

// Persisted keys
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyTempToken    = "tempToken"
	KeyUserEmail    = "userEmail"
	KeyRememberMe   = "rememberMe"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("storage: key not found")

// Store is a string key-value store. Each call is atomic on its own;
// callers never rely on read-modify-write sequences.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Lookup returns the value for key, or "" when the key is absent
func Lookup(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// RemoveAll removes every key, stopping at the first failure
func RemoveAll(ctx context.Context, s Store, keys ...string) error {
	for _, key := range keys {
		if err := s.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
