// Package credential persists the client's access token, refresh token and
// remembered username. Every key carries its own expiry.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUsername     = "username"
)

var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUsername}

var ErrUnknownBackend = errors.New("unknown credential backend")

// Store is a key/value store with per-key expiry. Get reports ok=false for keys that
// were never set, were removed, or have expired.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// TTLs holds the lifetime of each persisted credential.
type TTLs struct {
	Access   time.Duration
	Refresh  time.Duration
	Username time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Access:   24 * time.Hour,
		Refresh:  7 * 24 * time.Hour,
		Username: 7 * 24 * time.Hour,
	}
}

// Clear removes every credential key, attempting all of them even if one fails.
func Clear(ctx context.Context, store Store) error {
	var errs []error
	for _, key := range Keys {
		if err := store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type OpenOptions struct {
	Backend  string
	Dir      string
	RedisURL string
}

// Open builds the store selected by opts.Backend. Stores holding connections
// implement io.Closer.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		store, err := NewFileStore(opts.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		store, err := OpenRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
