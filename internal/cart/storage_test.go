package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
)

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) CartKey(sessionID, storageKey string) string {
	return "es:cart:" + sessionID + ":" + storageKey
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	client := newFakeRedis()
	storage := NewRedisStorage(client, 720*time.Hour)
	ctx := context.Background()

	payload, err := storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Nil(t, payload)

	require.NoError(t, storage.Save(ctx, "s1", "cotizacion-cart", []byte(`[]`)))
	assert.Equal(t, 720*time.Hour, client.ttls["es:cart:s1:cotizacion-cart"])

	payload, err = storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))

	require.NoError(t, storage.Delete(ctx, "s1", "cotizacion-cart"))
	payload, err = storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func newCartDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CartSnapshot{}))
	return conn
}

func TestDBStorage_UpsertAndLoad(t *testing.T) {
	conn := newCartDB(t)
	storage := NewDBStorage(conn)
	ctx := context.Background()

	payload, err := storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Nil(t, payload)

	require.NoError(t, storage.Save(ctx, "s1", "cotizacion-cart", []byte(`[{"variantCode":"A","quantity":1}]`)))
	require.NoError(t, storage.Save(ctx, "s1", "cotizacion-cart", []byte(`[]`)))

	var count int64
	require.NoError(t, conn.Model(&models.CartSnapshot{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	payload, err = storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(payload))

	require.NoError(t, storage.Delete(ctx, "s1", "cotizacion-cart"))
	payload, err = storage.Load(ctx, "s1", "cotizacion-cart")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestDBStorage_DeleteStaleBefore(t *testing.T) {
	conn := newCartDB(t)
	storage := NewDBStorage(conn)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	storage.now = func() time.Time { return now.AddDate(0, 0, -90) }
	require.NoError(t, storage.Save(ctx, "old", "k", []byte(`[]`)))
	storage.now = func() time.Time { return now }
	require.NoError(t, storage.Save(ctx, "fresh", "k", []byte(`[]`)))

	removed, err := storage.DeleteStaleBefore(ctx, now.AddDate(0, 0, -60))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	payload, err := storage.Load(ctx, "fresh", "k")
	require.NoError(t, err)
	assert.NotNil(t, payload)
}

func TestDBStorage_BacksStore(t *testing.T) {
	storage := NewDBStorage(newCartDB(t))
	store := newHydratedStore(t, storage, nil)
	ctx := context.Background()

	_, err := store.AddItem(ctx, jarItem("A", "rojo", "15", 3))
	require.NoError(t, err)

	reloaded := newHydratedStore(t, storage, nil)
	require.Len(t, reloaded.Items(), 1)
	assert.Equal(t, "A-rojo", reloaded.Items()[0].ID())
	assert.Equal(t, 3, reloaded.TotalItems())
}
