package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the session in two Redis keys so several machines (or a
// container that is rebuilt often) can share one login.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. prefix namespaces the keys
// (default "projectboard:session"); a zero ttl keeps them until logout.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if client == nil {
		panic("storage.NewRedis: client is nil")
	}
	if prefix == "" {
		prefix = "projectboard:session"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(name string) string {
	return r.prefix + ":" + name
}

func (r *Redis) Load(ctx context.Context) (Record, error) {
	vals, err := r.client.MGet(ctx, r.key(KeyToken), r.key(KeyUser)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("redis session load: %w", err)
	}
	var rec Record
	if s, ok := vals[0].(string); ok {
		rec.Token = s
	}
	if s, ok := vals[1].(string); ok {
		rec.User = []byte(s)
	}
	return rec, nil
}

// Save writes both keys in one MULTI/EXEC transaction.
func (r *Redis) Save(ctx context.Context, rec Record) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(KeyToken), rec.Token, r.ttl)
		pipe.Set(ctx, r.key(KeyUser), []byte(rec.User), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(KeyToken), r.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("redis session clear: %w", err)
	}
	return nil
}
