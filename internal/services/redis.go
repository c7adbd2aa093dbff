package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"photostamp-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a LocationStore backed by Redis, for deployments that want
// the location cache to survive process restarts. Every Redis failure
// degrades to a cache miss; the resolver then just pays the provider call.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		ttl:    ttl,
	}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	raw, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] Redis get failed for %s: %v", key, err)
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Printf("[Cache] Corrupt entry for %s, dropping: %v", key, err)
		rs.Delete(ctx, key)
		return nil, false
	}

	// Redis expiry already bounds the lifetime, but the timestamp check
	// keeps behavior identical when a TTL was lengthened after the write.
	if time.Now().UnixMilli()-entry.Timestamp > rs.ttl.Milliseconds() {
		rs.Delete(ctx, key)
		return nil, false
	}

	return &entry, true
}

func (rs *RedisStore) Set(ctx context.Context, key string, entry models.CacheEntry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := rs.client.Set(ctx, key, raw, rs.ttl).Err(); err != nil {
		log.Printf("[Cache] Redis set failed for %s: %v", key, err)
	}
}

func (rs *RedisStore) Delete(ctx context.Context, key string) {
	if err := rs.client.Del(ctx, key).Err(); err != nil {
		log.Printf("[Cache] Redis delete failed for %s: %v", key, err)
	}
}
