package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares pending suggestions between server instances. Keys
// outlive ExpiresAt by a grace period so an expired confirmation can be
// told apart from an unknown id.
type RedisStore struct {
	client *redis.Client
	grace  time.Duration
}

func NewRedisStore(connStr string) (*RedisStore, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opt), grace: 10 * time.Minute}, nil
}

func (r *RedisStore) key(actionID string) string {
	return fmt.Sprintf("suggestion:%s", actionID)
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Put(ctx context.Context, p *Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := time.Until(p.ExpiresAt) + r.grace
	if ttl <= 0 {
		ttl = r.grace
	}
	return r.client.Set(ctx, r.key(p.ActionID), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, actionID string) (*Pending, error) {
	b, err := r.client.Get(ctx, r.key(actionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode suggestion: %w", err)
	}
	return &p, nil
}

func (r *RedisStore) Delete(ctx context.Context, actionID string) error {
	return r.client.Del(ctx, r.key(actionID)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
