package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionTTL bounds how long finished sessions stay readable.
	DefaultSessionTTL = 24 * time.Hour
	redisKeyPrefix    = "goleakscan:session:"
	maxTxRetries      = 5
)

// RedisStore keeps each session as one JSON value with a TTL. Updates run in
// a WATCH transaction so the terminal check and the write are atomic across
// processes.
type RedisStore struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

// NewRedisStore returns a store using client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client, TTL: DefaultSessionTTL}
}

func (r *RedisStore) key(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return DefaultSessionTTL
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.Client.SetNX(ctx, r.key(s.ID), b, r.ttl()).Result()
	if err != nil {
		return fmt.Errorf("redis create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	b, err := r.Client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	return decodeSession(b)
}

func (r *RedisStore) Update(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := r.key(s.ID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrTerminal, s.ID, cur.Status)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, r.ttl())
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err = r.Client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("redis update session %s: %w", s.ID, err)
}

func decodeSession(b []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}
