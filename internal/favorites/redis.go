package favorites

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps favorites in a Redis set, one set per namespace.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to the Redis at rawURL and verifies the connection.
func NewRedisStore(rawURL, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("iptv-deck:%s:favorites", namespace),
	}, nil
}

// List returns all favorite titles in sorted order.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	titles, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	sort.Strings(titles)
	return titles, nil
}

// IsFavorite reports whether the title is marked as a favorite.
func (s *RedisStore) IsFavorite(ctx context.Context, title string) (bool, error) {
	found, err := s.client.SIsMember(ctx, s.key, title).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return found, nil
}

// Add marks the title as a favorite.
func (s *RedisStore) Add(ctx context.Context, title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if err := s.client.SAdd(ctx, s.key, title).Err(); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// Remove unmarks the title.
func (s *RedisStore) Remove(ctx context.Context, title string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if err := s.client.SRem(ctx, s.key, title).Err(); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// Toggle flips the favorite state and returns the new state.
func (s *RedisStore) Toggle(ctx context.Context, title string) (bool, error) {
	if title == "" {
		return false, ErrEmptyTitle
	}

	added, err := s.client.SAdd(ctx, s.key, title).Result()
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if added == 1 {
		return true, nil
	}

	// The title was already a member, so the toggle removes it.
	if err := s.client.SRem(ctx, s.key, title).Err(); err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return false, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
