package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	pkgerrors "github.com/envasesysoluciones/cotizaciones-backend/pkg/errors"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
)

const (
	DefaultCacheTTL = time.Hour
	DefaultCacheTag = "prismic-data"

	notFoundMarker = "!not-found"
)

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	ContentKey(version int64, parts ...string) string
	ContentTagKey(tag string) string
}

type CacheParams struct {
	Next    Repository
	Store   cacheStore
	TTL     time.Duration
	Tag     string
	Metrics *metrics.CacheMetrics
	Logger  *logger.Logger
}

// CachedRepository keeps normalized content in redis under a versioned tag.
// Bumping the tag version orphans every entry written under the old one.
type CachedRepository struct {
	next    Repository
	store   cacheStore
	ttl     time.Duration
	tag     string
	metrics *metrics.CacheMetrics
	logg    *logger.Logger
}

func NewCachedRepository(params CacheParams) (*CachedRepository, error) {
	if params.Next == nil {
		return nil, errors.New("catalog repository required")
	}
	if params.Store == nil {
		return nil, errors.New("cache store required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	tag := params.Tag
	if tag == "" {
		tag = DefaultCacheTag
	}
	return &CachedRepository{
		next:    params.Next,
		store:   params.Store,
		ttl:     ttl,
		tag:     tag,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (c *CachedRepository) ListProducts(ctx context.Context) ([]Product, error) {
	return cachedList(ctx, c, "products", c.next.ListProducts)
}

func (c *CachedRepository) ListCategories(ctx context.Context) ([]Option, error) {
	return cachedList(ctx, c, "categories", c.next.ListCategories)
}

func (c *CachedRepository) ListMaterials(ctx context.Context) ([]Option, error) {
	return cachedList(ctx, c, "materials", c.next.ListMaterials)
}

func (c *CachedRepository) ListColors(ctx context.Context) ([]Option, error) {
	return cachedList(ctx, c, "colors", c.next.ListColors)
}

// GetProductBySlug caches misses as well as hits.
func (c *CachedRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	version, ok := c.version(ctx)
	if !ok {
		return c.next.GetProductBySlug(ctx, slug)
	}
	key := c.store.ContentKey(version, "product", slug)

	if raw, hit := c.lookup(ctx, "product", key); hit {
		if raw == notFoundMarker {
			return nil, errProductNotFound(nil)
		}
		var p Product
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
		c.warn(ctx, "catalog.cache.corrupt_entry", key, nil)
	}

	p, err := c.next.GetProductBySlug(ctx, slug)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			c.write(ctx, key, notFoundMarker)
		}
		return nil, err
	}
	c.writeJSON(ctx, key, p)
	return p, nil
}

// InvalidateTag bumps the tag version and returns the new one.
func (c *CachedRepository) InvalidateTag(ctx context.Context) (int64, error) {
	version, err := c.store.Incr(ctx, c.store.ContentTagKey(c.tag))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump content cache tag")
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{"tag": c.tag, "version": version}), "catalog.cache.invalidated")
	}
	return version, nil
}

// Refresh reloads every list from the source and overwrites the entries of
// the current version, extending their lifetime.
func (c *CachedRepository) Refresh(ctx context.Context) error {
	version, ok := c.version(ctx)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "content cache unavailable")
	}

	var errs error
	products, err := c.next.ListProducts(ctx)
	if err == nil {
		c.writeJSON(ctx, c.store.ContentKey(version, "products"), products)
	}
	errs = multierr.Append(errs, err)

	for resource, load := range map[string]func(context.Context) ([]Option, error){
		"categories": c.next.ListCategories,
		"materials":  c.next.ListMaterials,
		"colors":     c.next.ListColors,
	} {
		opts, err := load(ctx)
		if err == nil {
			c.writeJSON(ctx, c.store.ContentKey(version, resource), opts)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

func cachedList[T any](ctx context.Context, c *CachedRepository, resource string, load func(context.Context) ([]T, error)) ([]T, error) {
	version, ok := c.version(ctx)
	if !ok {
		return load(ctx)
	}
	key := c.store.ContentKey(version, resource)

	if raw, hit := c.lookup(ctx, resource, key); hit {
		var out []T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		c.warn(ctx, "catalog.cache.corrupt_entry", key, nil)
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.writeJSON(ctx, key, out)
	return out, nil
}

// version reads the tag version. A missing counter is version 0.
func (c *CachedRepository) version(ctx context.Context) (int64, bool) {
	raw, err := c.store.Get(ctx, c.store.ContentTagKey(c.tag))
	if errors.Is(err, goredis.Nil) {
		return 0, true
	}
	if err != nil {
		c.warn(ctx, "catalog.cache.version_unavailable", c.tag, err)
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.warn(ctx, "catalog.cache.version_invalid", c.tag, err)
		return 0, false
	}
	return v, true
}

func (c *CachedRepository) lookup(ctx context.Context, resource, key string) (string, bool) {
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		c.metrics.Hit(resource)
		return raw, true
	case errors.Is(err, goredis.Nil):
	default:
		c.warn(ctx, "catalog.cache.read_failed", key, err)
	}
	c.metrics.Miss(resource)
	return "", false
}

func (c *CachedRepository) writeJSON(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.warn(ctx, "catalog.cache.encode_failed", key, err)
		return
	}
	c.write(ctx, key, string(payload))
}

func (c *CachedRepository) write(ctx context.Context, key, value string) {
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.warn(ctx, "catalog.cache.write_failed", key, err)
	}
}

func (c *CachedRepository) warn(ctx context.Context, msg, key string, err error) {
	if c.logg == nil {
		return
	}
	fields := map[string]any{"key": key}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.logg.Warn(c.logg.WithFields(ctx, fields), msg)
}
