package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ignite/person-registry/internal/config"
	"github.com/ignite/person-registry/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultListTTL applies when the configured TTL is not positive. Every list
// key must expire because superseded generations are never deleted.
const DefaultListTTL = time.Minute

// NewRedisClient builds a client from cfg. URL wins over Addr; a URL that
// does not parse is treated as a bare address.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err == nil {
			return redis.NewClient(opts)
		}
		return redis.NewClient(&redis.Options{Addr: cfg.URL})
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RegistrationList caches the full registration list under a generation
// counter. Writers bump the generation; a list read from the database is
// stored only if the generation it was read under is still current.
type RegistrationList struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRegistrationList returns a cache storing the list under prefix with the given TTL.
func NewRegistrationList(client *redis.Client, prefix string, ttl time.Duration) *RegistrationList {
	if ttl <= 0 {
		ttl = DefaultListTTL
	}
	return &RegistrationList{client: client, prefix: prefix, ttl: ttl}
}

// GenerationKey returns the Redis key holding the generation counter.
func (c *RegistrationList) GenerationKey() string {
	return c.prefix + ":registrations:gen"
}

// ListKey returns the Redis key holding the list cached under gen.
func (c *RegistrationList) ListKey(gen uint64) string {
	return c.prefix + ":registrations:list:" + strconv.FormatUint(gen, 10)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *RegistrationList) generation(ctx context.Context, g getter) (uint64, error) {
	gen, err := g.Get(ctx, c.GenerationKey()).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", c.GenerationKey(), err)
	}
	return gen, nil
}

// Get returns the list cached for the current generation. On a miss ok is
// false and gen is the generation a subsequent Set must present.
func (c *RegistrationList) Get(ctx context.Context) ([]domain.PersonRegistration, uint64, bool, error) {
	gen, err := c.generation(ctx, c.client)
	if err != nil {
		return nil, 0, false, err
	}

	key := c.ListKey(gen)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get %s: %w", key, err)
	}

	var items []domain.PersonRegistration
	if err := json.Unmarshal(data, &items); err != nil {
		// corrupt entry, drop it so the next read repopulates
		_ = c.client.Del(ctx, key).Err()
		return nil, gen, false, fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []domain.PersonRegistration{}
	}
	return items, gen, true, nil
}

// Set stores items for gen. It is a no-op when a writer has moved the
// generation on since gen was read.
func (c *RegistrationList) Set(ctx context.Context, gen uint64, items []domain.PersonRegistration) error {
	if items == nil {
		items = []domain.PersonRegistration{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode list: %w", err)
	}

	key := c.ListKey(gen)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})
		return err
	}, c.GenerationKey())
	if errors.Is(err, redis.TxFailedErr) {
		// generation bumped between WATCH and EXEC
		return nil
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate bumps the generation so no reader sees a list cached before the write.
func (c *RegistrationList) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.GenerationKey()).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", c.GenerationKey(), err)
	}
	return nil
}
