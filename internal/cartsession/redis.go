package cartsession

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/trashforcoin/internal/clock"
)

const keyPrefix = "cart:session:"

type redisStore struct {
	client *redis.Client
	clock  clock.Clock
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, c clock.Clock, ttl time.Duration) Store {
	return &redisStore{client: client, clock: c, ttl: ttl}
}

func (r *redisStore) Load(ctx context.Context, key string) (*Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Session{Key: key}, nil
	}
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return &Session{Key: key}, nil
	}
	session.Key = key
	return &session, nil
}

func (r *redisStore) Save(ctx context.Context, session *Session) error {
	if session == nil || strings.TrimSpace(session.Key) == "" {
		return ErrInvalidKey
	}
	session.UpdatedAt = r.clock.Now()
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+session.Key, payload, r.ttl).Err()
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return r.client.Del(ctx, keyPrefix+key).Err()
}
