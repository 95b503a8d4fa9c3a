package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/videah/twitter-archive-server/internal/database/cache"
)

const (
	redisSessionKey = "twitter_guest_session"
	// Guest tokens live for a few hours server-side; let redis expire
	// ours first so a fetch never starts with a token that is about to die.
	redisSessionTTL = 3 * time.Hour
)

// RedisStore keeps the session artifact in redis, sharing it between
// replicas. Expiry in redis is indistinguishable from an invalidated
// session, which is exactly what the fetcher expects.
type RedisStore struct {
	Key string
}

func NewRedisStore() *RedisStore {
	return &RedisStore{Key: redisSessionKey}
}

func (s *RedisStore) Load() (*Token, error) {
	value, err := cache.GetCache(s.Key)
	if errors.Is(err, cache.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session from redis: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(value), &token); err != nil {
		return nil, fmt.Errorf("parse session from redis: %w", err)
	}
	return &token, nil
}

func (s *RedisStore) Save(token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := cache.SetCache(s.Key, string(data), redisSessionTTL); err != nil {
		return fmt.Errorf("write session to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Invalidate() error {
	if err := cache.DeleteCache(s.Key); err != nil {
		return fmt.Errorf("delete session from redis: %w", err)
	}
	return nil
}
