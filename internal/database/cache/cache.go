package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var rdb *redis.Client

var ErrCacheDisabled = errors.New("cache: redis client not initialized")

// Nil reports a cache miss, re-exported so callers don't import go-redis.
var Nil = redis.Nil

func RedisClient(addr string, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return err
	}

	rdb = client
	return nil
}

func Enabled() bool {
	return rdb != nil
}

func SetCache(key string, value interface{}, expiration time.Duration) error {
	if rdb == nil {
		return ErrCacheDisabled
	}
	ctx := context.Background()
	err := rdb.Set(ctx, key, value, expiration).Err()
	if err != nil {
		return err
	}
	return nil
}

func GetCache(key string) (string, error) {
	if rdb == nil {
		return "", ErrCacheDisabled
	}
	ctx := context.Background()
	val, err := rdb.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return val, nil
}

func DeleteCache(key string) error {
	if rdb == nil {
		return ErrCacheDisabled
	}
	ctx := context.Background()
	return rdb.Del(ctx, key).Err()
}

func Close() {
	if rdb != nil {
		rdb.Close()
		rdb = nil
	}
}
