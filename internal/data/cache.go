package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	playlistBucket     = "playlists"
	playlistMetaBucket = "playlist_meta"
)

// ErrCacheMiss is returned when no cached playlist exists for a source.
var ErrCacheMiss = errors.New("no cached playlist for source")

// Cache keeps the last successfully fetched playlist per source in bolt so
// a refresh can fall back to it when the upstream is unreachable.
type Cache struct {
	db *bbolt.DB
}

// NewCache creates a playlist cache on the given database, initializing the
// required buckets if they don't exist.
func NewCache(db *bbolt.DB) (*Cache, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(playlistBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(playlistMetaBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	return &Cache{db: db}, nil
}

// Put stores the raw playlist for a source.
func (c *Cache) Put(ctx context.Context, source string, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(playlistBucket))
		if bucket == nil {
			return errors.New("playlist bucket not found")
		}
		if err := bucket.Put([]byte(source), raw); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(playlistMetaBucket))
		if meta == nil {
			return errors.New("playlist meta bucket not found")
		}
		stamp := time.Now().UTC().Format(time.RFC3339)
		return meta.Put([]byte(source), []byte(stamp))
	})
}

// Get returns the cached playlist for a source and when it was stored.
// Returns ErrCacheMiss if the source has never been cached.
func (c *Cache) Get(ctx context.Context, source string) ([]byte, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	var raw []byte
	var storedAt time.Time

	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(playlistBucket))
		if bucket == nil {
			return errors.New("playlist bucket not found")
		}

		data := bucket.Get([]byte(source))
		if data == nil {
			return ErrCacheMiss
		}
		// Bolt values are only valid inside the transaction.
		raw = append([]byte(nil), data...)

		if meta := tx.Bucket([]byte(playlistMetaBucket)); meta != nil {
			if stamp := meta.Get([]byte(source)); stamp != nil {
				if ts, err := time.Parse(time.RFC3339, string(stamp)); err == nil {
					storedAt = ts
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	return raw, storedAt, nil
}
