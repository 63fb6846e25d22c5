package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/repository"
)

// RedisLinkStore implements LinkStateStore backed by Redis.
type RedisLinkStore struct {
	client redis.UniversalClient
}

var _ repository.LinkStateStore = (*RedisLinkStore)(nil)

// NewRedisLinkStore constructs a Redis-backed pending-link store.
func NewRedisLinkStore(client redis.UniversalClient) *RedisLinkStore {
	return &RedisLinkStore{client: client}
}

const linkPrefix = "link:pending:"

// Save stores the encoded pending link with TTL.
func (s *RedisLinkStore) Save(ctx context.Context, key string, link domain.PendingLink, ttl time.Duration) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("marshal pending link: %w", err)
	}
	if err := s.client.Set(ctx, linkPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist pending link: %w", err)
	}
	return nil
}

// Get loads and decodes the pending link, returning nil when absent.
func (s *RedisLinkStore) Get(ctx context.Context, key string) (*domain.PendingLink, error) {
	bytes, err := s.client.Get(ctx, linkPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load pending link: %w", err)
	}
	var link domain.PendingLink
	if err := json.Unmarshal(bytes, &link); err != nil {
		return nil, fmt.Errorf("decode pending link: %w", err)
	}
	return &link, nil
}

// Delete removes the staged link.
func (s *RedisLinkStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, linkPrefix+key).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete pending link: %w", err)
	}
	return nil
}
