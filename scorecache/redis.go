package scorecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitea.kood.tech/petrkubec/match-me/matchradar/config"
)

// NewRedisClient connects to the configured Redis instance.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// Redis is a Store shared between service instances. Entries expire after
// maxAge and are re-checked for staleness on read.
type Redis struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

func NewRedis(client *redis.Client, maxAge time.Duration) *Redis {
	return &Redis{client: client, maxAge: maxAge, now: time.Now}
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key Key) (Entry, bool, error) {
	raw, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if !e.Fresh(r.now(), r.maxAge) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (r *Redis) Put(ctx context.Context, key Key, e Entry) error {
	if e.ComputedAt.IsZero() {
		e.ComputedAt = r.now()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key.String(), raw, r.maxAge).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
