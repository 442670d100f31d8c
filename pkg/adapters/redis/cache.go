package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/aretw0/formflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "formflow:session:"

// putScript writes the entry unless a newer version is stored.
// KEYS[1] entry hash, KEYS[2] index. ARGV: version, payload, ttl ms, index score, member.
var putScript = backend.NewScript(`
local cur = redis.call("HGET", KEYS[1], "version")
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1])
redis.call("HSET", KEYS[1], "state", ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
redis.call("ZADD", KEYS[2], ARGV[4], ARGV[5])
return 1
`)

// Cache implements ports.SessionCache using Redis, shared by every replica.
type Cache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Cache)

// WithTTL sets the expiration for cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// New creates a cache with its own client.
func New(address, password string, db int, opts ...Option) *Cache {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a cache from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Cache {
	c := &Cache{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (c *Cache) Client() *backend.Client {
	return c.client
}

func (c *Cache) key(instanceID int64) string {
	return c.prefix + strconv.FormatInt(instanceID, 10)
}

func (c *Cache) indexKey() string {
	return c.prefix + "index"
}

// Put stores state unless a newer version is already cached.
func (c *Cache) Put(ctx context.Context, state *domain.SessionState) (bool, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session state: %w", err)
	}

	// Score = expiry; without a TTL the entry never leaves the index on its own.
	score := float64(time.Now().Add(c.ttl).Unix())
	if c.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}

	written, err := putScript.Run(ctx, c.client,
		[]string{c.key(state.InstanceID), c.indexKey()},
		state.Version, data, c.ttl.Milliseconds(), score, state.InstanceID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to save to redis: %w", err)
	}
	return written == 1, nil
}

// Get retrieves the cached state.
func (c *Cache) Get(ctx context.Context, instanceID int64) (*domain.SessionState, error) {
	val, err := c.client.HGet(ctx, c.key(instanceID), "state").Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Delete removes the cached state.
func (c *Cache) Delete(ctx context.Context, instanceID int64) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.key(instanceID))
	pipe.ZRem(ctx, c.indexKey(), strconv.FormatInt(instanceID, 10))
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the cached instance ids, pruning expired ones from the index first.
func (c *Cache) List(ctx context.Context) ([]int64, error) {
	now := float64(time.Now().Unix())
	if err := c.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	members, err := c.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}
