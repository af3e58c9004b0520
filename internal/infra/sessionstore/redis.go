package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bryanwahyu/roundtable/internal/domain/session"
)

// Redis stores each session as one JSON value under {prefix}:session:{tenant}:{id}.
// Every save refreshes the TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "roundtable"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) sessionKey(tenant, id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, key(tenant, id))
}

func (r *Redis) Get(ctx context.Context, tenant, id string) (*session.State, error) {
	b, err := r.client.Get(ctx, r.sessionKey(tenant, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	return decode(b)
}

func (r *Redis) Save(ctx context.Context, s *session.State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.sessionKey(s.TenantID, s.ID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, tenant, id string) error {
	n, err := r.client.Del(ctx, r.sessionKey(tenant, id)).Result()
	if err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
