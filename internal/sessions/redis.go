package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sportello-uk/sportello-backend/pkg/redis"
)

type keyValue interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(sessionID string) string
}

var _ keyValue = (*redis.Client)(nil)

// RedisStore keeps sessions as JSON under sp:session:<id>. Every save
// refreshes the TTL.
type RedisStore struct {
	kv  keyValue
	ttl time.Duration
}

func NewRedisStore(kv keyValue, ttl time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &RedisStore{kv: kv, ttl: ttl}, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.kv.Set(ctx, r.kv.SessionKey(s.ID), string(data), r.ttl)
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.kv.Get(ctx, r.kv.SessionKey(id))
	if err != nil {
		if redis.IsMissing(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.kv.Del(ctx, r.kv.SessionKey(id))
}
