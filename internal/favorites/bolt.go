package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const favoritesBucket = "favorites"

// BoltStore is a bolt-backed favorites store. Titles are keys in a
// per-namespace nested bucket, so listing comes back sorted.
type BoltStore struct {
	db        *bbolt.DB
	namespace string
}

// NewBoltStore creates a favorites store on the given database, initializing
// the namespace bucket if it doesn't exist.
func NewBoltStore(db *bbolt.DB, namespace string) (*BoltStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(favoritesBucket))
		if err != nil {
			return err
		}
		_, err = root.CreateBucketIfNotExists([]byte(namespace))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create favorites bucket: %w", err)
	}

	return &BoltStore{db: db, namespace: namespace}, nil
}

func (s *BoltStore) bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	root := tx.Bucket([]byte(favoritesBucket))
	if root == nil {
		return nil, errors.New("favorites bucket not found")
	}
	bucket := root.Bucket([]byte(s.namespace))
	if bucket == nil {
		return nil, fmt.Errorf("favorites namespace %q not found", s.namespace)
	}
	return bucket, nil
}

// List returns all favorite titles in sorted order.
func (s *BoltStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	titles := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, _ []byte) error {
			titles = append(titles, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return titles, nil
}

// IsFavorite reports whether the title is marked as a favorite.
func (s *BoltStore) IsFavorite(ctx context.Context, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		found = bucket.Get([]byte(title)) != nil
		return nil
	})
	return found, err
}

// Add marks the title as a favorite.
func (s *BoltStore) Add(ctx context.Context, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if title == "" {
		return ErrEmptyTitle
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		stamp := time.Now().UTC().Format(time.RFC3339)
		return bucket.Put([]byte(title), []byte(stamp))
	})
}

// Remove unmarks the title.
func (s *BoltStore) Remove(ctx context.Context, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if title == "" {
		return ErrEmptyTitle
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(title))
	})
}

// Toggle flips the favorite state and returns the new state.
func (s *BoltStore) Toggle(ctx context.Context, title string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if title == "" {
		return false, ErrEmptyTitle
	}

	var favorite bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		key := []byte(title)
		if bucket.Get(key) != nil {
			favorite = false
			return bucket.Delete(key)
		}
		favorite = true
		stamp := time.Now().UTC().Format(time.RFC3339)
		return bucket.Put(key, []byte(stamp))
	})
	return favorite, err
}

// Close is a no-op: the database is shared and closed by its owner.
func (s *BoltStore) Close() error {
	return nil
}
