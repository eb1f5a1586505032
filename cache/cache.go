// Package cache provides a TTL-keyed local store for expensive external
// lookups. Entries are persisted to disk so they survive restarts; a
// ristretto cache fronts the disk store within a process. The disk copy is
// authoritative: freshness is always judged against the persisted fetched-at
// timestamp, never against ristretto's own expiry.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// FetchFunc produces the payload for a key on a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Store is a disk-backed TTL cache with an in-process hot tier.
type Store struct {
	dir     string
	enabled bool
	hot     *ristretto.Cache
	log     zerolog.Logger

	now func() time.Time // test hook
}

// entry is the persisted envelope for one cached payload.
type entry struct {
	Key       string        `msgpack:"key"`
	Payload   []byte        `msgpack:"payload"`
	FetchedAt time.Time     `msgpack:"fetched_at"`
	TTL       time.Duration `msgpack:"ttl"`
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// NewStore creates a cache rooted at dir. When enabled is false every
// GetOrFetch call goes straight to the fetch function.
func NewStore(dir string, enabled bool, log zerolog.Logger) (*Store, error) {
	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 14,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: hot tier: %w", err)
	}
	if enabled {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: mkdir: %w", err)
		}
	}
	return &Store{
		dir:     dir,
		enabled: enabled,
		hot:     hot,
		log:     log.With().Str("component", "cache").Logger(),
		now:     time.Now,
	}, nil
}

// Enabled reports whether caching is active.
func (s *Store) Enabled() bool { return s.enabled }

// GetOrFetch returns the cached payload for key if a fresh entry exists,
// otherwise calls fetch and stores the result. If fetch fails and an expired
// entry is still on disk, that stale payload is returned as a degraded
// fallback rather than surfacing the error.
func (s *Store) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) ([]byte, error) {
	if !s.enabled {
		return fetch(ctx)
	}

	if e := s.lookup(key); e != nil && e.fresh(s.now()) {
		s.log.Debug().Str("key", key).Msg("cache hit")
		return e.Payload, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		if stale := s.lookupDisk(key); stale != nil {
			s.log.Warn().Str("key", key).Err(err).
				Time("fetched_at", stale.FetchedAt).
				Msg("fetch failed, serving stale cache entry")
			return stale.Payload, nil
		}
		return nil, err
	}

	e := &entry{Key: key, Payload: payload, FetchedAt: s.now(), TTL: ttl}
	if err := s.persist(e); err != nil {
		// A write failure degrades to a fetch-only cache, it does not fail
		// the call.
		s.log.Warn().Str("key", key).Err(err).Msg("failed to persist cache entry")
	}
	s.hot.SetWithTTL(key, e, int64(len(payload))+64, ttl)
	return payload, nil
}

// lookup checks the hot tier first, then disk, promoting disk hits.
func (s *Store) lookup(key string) *entry {
	if v, ok := s.hot.Get(key); ok {
		if e, ok := v.(*entry); ok {
			return e
		}
	}
	e := s.lookupDisk(key)
	if e != nil {
		s.hot.SetWithTTL(key, e, int64(len(e.Payload))+64, e.TTL)
	}
	return e
}

func (s *Store) lookupDisk(key string) *entry {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil
	}
	var e entry
	if err := msgpack.Unmarshal(raw, &e); err != nil {
		s.log.Warn().Str("key", key).Err(err).Msg("discarding unreadable cache entry")
		return nil
	}
	return &e
}

func (s *Store) persist(e *entry) error {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	path := s.path(e.Key)
	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Clear removes every persisted entry and resets the hot tier.
func (s *Store) Clear() error {
	s.hot.Clear()
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.bin"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	s.log.Info().Int("entries", len(matches)).Msg("cache cleared")
	return nil
}

// Size returns the total size in bytes of the persisted cache.
func (s *Store) Size() int64 {
	var total int64
	matches, _ := filepath.Glob(filepath.Join(s.dir, "*.bin"))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".bin")
}

// sanitizeKey maps a namespaced key like "sleeper:matchups:123:w4" to a
// filesystem-safe name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
