package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// inFlightMarker is the placeholder stored while the first request with
// a key is still being processed. It is never returned to callers.
const inFlightMarker = "\x00in-flight"

// IdempotencyStore implements usecase.IdempotencyStore on Redis.
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "guildbank:idem:",
	}
}

// CheckAndSet reports whether the key was already claimed. A nil
// response with exists=true means the original request is still in
// flight and no cached body is available yet. When the key is free and
// response is nil, the key is claimed with a placeholder.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	existing, err := s.client.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		return true, stripMarker(existing), nil
	case !errors.Is(err, redis.Nil):
		return false, nil, err
	}

	if response != nil {
		if err := s.client.Set(ctx, fullKey, response, ttl).Err(); err != nil {
			return false, nil, err
		}

		return false, nil, nil
	}

	claimed, err := s.client.SetNX(ctx, fullKey, inFlightMarker, ttl).Result()
	if err != nil {
		return false, nil, err
	}

	if claimed {
		return false, nil, nil
	}

	// Lost the race; surface whatever the winner has stored so far.
	existing, err = s.client.Get(ctx, fullKey).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, nil, err
	}

	return true, stripMarker(existing), nil
}

// Update replaces the placeholder with the final response.
func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, response, ttl).Err()
}

func stripMarker(value []byte) []byte {
	if string(value) == inFlightMarker {
		return nil
	}

	return value
}
