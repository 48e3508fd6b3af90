package tokenstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/kelibe/internal/models"
)

const (
	fieldAccess  = "access"
	fieldRefresh = "refresh"
)

// Redis хранит пару в одном Redis Hash (поля access, refresh).
// Set выполняется одним MULTI/EXEC, так что пара меняется атомарно.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

var _ Store = (*Redis)(nil)

// RedisOptions — параметры хранилища.
type RedisOptions struct {
	URL    string        // redis://:pass@host:6379/0
	Prefix string        // по умолчанию "kelibe:session:"
	Key    string        // идентификатор сессии, по умолчанию "default"
	TTL    time.Duration // <=0 — без TTL
}

// NewRedis создаёт клиент из URL и проверяет соединение (fail-fast).
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	const op = "tokenstore.NewRedis"

	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewRedisWithClient(rdb, opts), nil
}

// NewRedisWithClient использует готовый клиент (общий пул соединений).
func NewRedisWithClient(rdb *redis.Client, opts RedisOptions) *Redis {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "kelibe:session:"
	}

	key := opts.Key
	if key == "" {
		key = "default"
	}

	return &Redis{rdb: rdb, key: prefix + key, ttl: opts.TTL}
}

func (r *Redis) Get(ctx context.Context) (models.TokenPair, error) {
	const op = "tokenstore.Redis.Get"

	m, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{Access: m[fieldAccess], Refresh: m[fieldRefresh]}, nil
}

func (r *Redis) Set(ctx context.Context, pair models.TokenPair) error {
	const op = "tokenstore.Redis.Set"

	if pair.Empty() {
		if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	pipe := r.rdb.TxPipeline()

	set := map[string]string{}
	var del []string
	for field, val := range map[string]string{fieldAccess: pair.Access, fieldRefresh: pair.Refresh} {
		if val == "" {
			del = append(del, field)
			continue
		}
		set[field] = val
	}

	if len(set) > 0 {
		pipe.HSet(ctx, r.key, set)
	}
	if len(del) > 0 {
		pipe.HDel(ctx, r.key, del...)
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	const op = "tokenstore.Redis.Clear"

	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error { return r.rdb.Close() }
