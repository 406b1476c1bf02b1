// Package favorites persists the user's favorite channels.
//
// Favorites are keyed by exact channel title. When an upstream renames a
// channel the favorite flag is lost until the channel is marked again.
package favorites

import (
	"context"
	"errors"
)

// ErrEmptyTitle is returned when a favorite operation gets an empty title.
var ErrEmptyTitle = errors.New("favorite title cannot be empty")

// Store persists favorite channel titles for a namespace.
type Store interface {
	// List returns all favorite titles in sorted order.
	List(ctx context.Context) ([]string, error)
	// IsFavorite reports whether the title is marked as a favorite.
	IsFavorite(ctx context.Context, title string) (bool, error)
	// Add marks the title as a favorite. Adding an existing favorite is a no-op.
	Add(ctx context.Context, title string) error
	// Remove unmarks the title. Removing a non-favorite is a no-op.
	Remove(ctx context.Context, title string) error
	// Toggle flips the favorite state and returns the new state.
	Toggle(ctx context.Context, title string) (bool, error)
	// Close releases any resources held by the store.
	Close() error
}

// Set returns the favorites as a lookup set keyed by title.
func Set(ctx context.Context, s Store) (map[string]bool, error) {
	titles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(titles))
	for _, title := range titles {
		set[title] = true
	}
	return set, nil
}
