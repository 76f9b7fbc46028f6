package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

const defaultNamespace = "es"

var errNotInitialized = errors.New("redis client not initialized")

// Keyspaces under the namespace.
const (
	spaceRateLimit = "rate_limit"
	spaceCart      = "cart"
	spaceContent   = "content"
	spaceLock      = "lock"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client holds carts, the content cache, rate-limit windows and cron leases.
// Every key it builds starts with the configured namespace.
type Client struct {
	store     cmdable
	raw       *redis.Client
	namespace string
}

type Pinger interface {
	Ping(context.Context) error
}

func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	c := &Client{store: raw, raw: raw, namespace: cleanNamespace(cfg.KeyPrefix)}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_namespace", c.namespace), "redis connection established")
	}
	return c, nil
}

func cleanNamespace(ns string) string {
	if ns = strings.Trim(strings.TrimSpace(ns), ":"); ns != "" {
		return ns
	}
	return defaultNamespace
}

// optionsFromConfig prefers the URL. Pool and timeout settings only fill what
// the URL left unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt(&opts.DB, cfg.DB)
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDuration(&opts.DialTimeout, cfg.DialTimeout)
	fillDuration(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDuration(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func fillDuration(dst *time.Duration, v time.Duration) {
	if *dst == 0 {
		*dst = v
	}
}

func (c *Client) key(space string, parts ...string) string {
	segments := []string{cleanNamespace(c.namespace)}
	if space != "" {
		segments = append(segments, space)
	}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return strings.Join(segments, ":")
}

// CartKey is where one session's cart lives under its storage key.
func (c *Client) CartKey(sessionID, storageKey string) string {
	return c.key(spaceCart, sessionID, storageKey)
}

// ContentKey addresses a cached content read; bumping the tag version orphans
// every key of the previous version.
func (c *Client) ContentKey(version int64, parts ...string) string {
	return c.key(spaceContent, append([]string{"v" + strconv.FormatInt(version, 10)}, parts...)...)
}

func (c *Client) ContentTagKey(tag string) string {
	return c.key(spaceContent, "tag", tag)
}

func (c *Client) LockKey(name string) string {
	return c.key(spaceLock, name)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.key(spaceRateLimit, scope)
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Incr(ctx, key).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// HitWindow counts one hit against scope in a fixed window. The window starts
// with the first hit.
func (c *Client) HitWindow(ctx context.Context, scope string, window time.Duration) (int64, error) {
	key := c.RateLimitKey(scope)
	count, err := c.Incr(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 && window > 0 {
		if err := c.store.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
