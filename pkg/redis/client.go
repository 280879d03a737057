package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nqtuan-dev/vietshop-backend/pkg/config"
)

const (
	keyNamespace = "vs"
	cartPrefix   = "cart"
	guestPrefix  = "guest"
	lockPrefix   = "lock"
)

// Nil is re-exported so callers can detect cache misses without
// importing the driver.
var Nil = redis.Nil

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Exists(context.Context, ...string) *redis.IntCmd
	HSet(context.Context, string, ...any) *redis.IntCmd
	HGet(context.Context, string, string) *redis.StringCmd
	HGetAll(context.Context, string) *redis.MapStringStringCmd
	HDel(context.Context, string, ...string) *redis.IntCmd
	Scan(context.Context, uint64, string, int64) *redis.ScanCmd
}

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

// NewFromCmdable wires the client onto an existing command surface.
// Used by tests with a miniature in-memory implementation.
func NewFromCmdable(store cmdable) *Client {
	return &Client{store: store}
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// Exists reports whether the key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	n, err := c.store.Exists(ctx, key).Result()
	return n > 0, err
}

// HSet writes field/value pairs into a hash.
func (c *Client) HSet(ctx context.Context, key string, pairs ...any) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.HSet(ctx, key, pairs...).Err()
}

// HGet returns a single hash field.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.HGet(ctx, key, field).Result()
}

// HGetAll returns the full hash stored at key. Missing keys yield an
// empty map, not an error.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if c.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	return c.store.HGetAll(ctx, key).Result()
}

// HDel removes hash fields.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.HDel(ctx, key, fields...).Err()
}

// Expire resets the key TTL.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Expire(ctx, key, ttl).Err()
}

// Scan walks keys matching pattern from the given cursor, returning
// the next cursor. A returned cursor of zero means the walk is done.
func (c *Client) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	if c.store == nil {
		return nil, 0, errors.New("redis client not initialized")
	}
	return c.store.Scan(ctx, cursor, pattern, count).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// UserCartKey returns the hash key for an authenticated owner's cart.
func (c *Client) UserCartKey(userID string) string {
	return c.buildKey(cartPrefix, userID)
}

// GuestCartKey returns the hash key for a guest-token cart.
func (c *Client) GuestCartKey(token string) string {
	return c.buildKey(cartPrefix, guestPrefix, token)
}

// UserCartPattern matches authenticated cart keys only; guest keys
// carry an extra segment and are excluded by the scan filter.
func (c *Client) UserCartPattern() string {
	return c.buildKey(cartPrefix, "*")
}

// IsGuestCartKey reports whether a scanned key belongs to a guest cart.
func (c *Client) IsGuestCartKey(key string) bool {
	return strings.HasPrefix(key, c.buildKey(cartPrefix, guestPrefix)+":")
}

// UserIDFromCartKey extracts the owner segment from an authenticated
// cart key.
func (c *Client) UserIDFromCartKey(key string) (string, bool) {
	prefix := c.buildKey(cartPrefix) + ":"
	if !strings.HasPrefix(key, prefix) || c.IsGuestCartKey(key) {
		return "", false
	}
	return strings.TrimPrefix(key, prefix), true
}

// LockKey returns a namespaced key for worker leases.
func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
