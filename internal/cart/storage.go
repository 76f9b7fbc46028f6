package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db/models"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage persists the serialized cart of a session. Load returns nil, nil when nothing is stored.
type Storage interface {
	Load(ctx context.Context, sessionID, key string) ([]byte, error)
	Save(ctx context.Context, sessionID, key string, payload []byte) error
	Delete(ctx context.Context, sessionID, key string) error
}

// EncodeItems serializes items in order.
func EncodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

// DecodeItems parses a stored cart. Entries without a variant code or with a
// non-positive quantity are dropped.
func DecodeItems(payload []byte) ([]LineItem, error) {
	var raw []LineItem
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	items := make([]LineItem, 0, len(raw))
	for _, item := range raw {
		if item.VariantCode == "" || item.Quantity < 1 {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID, storageKey string) string
}

// RedisStorage keeps carts in redis with a sliding TTL.
type RedisStorage struct {
	client redisStore
	ttl    time.Duration
}

func NewRedisStorage(client redisStore, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (s *RedisStorage) Load(ctx context.Context, sessionID, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.CartKey(sessionID, key))
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *RedisStorage) Save(ctx context.Context, sessionID, key string, payload []byte) error {
	return s.client.Set(ctx, s.client.CartKey(sessionID, key), string(payload), s.ttl)
}

func (s *RedisStorage) Delete(ctx context.Context, sessionID, key string) error {
	return s.client.Del(ctx, s.client.CartKey(sessionID, key))
}

// DBStorage keeps carts in the cart_snapshots table.
type DBStorage struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBStorage(db *gorm.DB) *DBStorage {
	return &DBStorage{db: db, now: time.Now}
}

func (s *DBStorage) Load(ctx context.Context, sessionID, key string) ([]byte, error) {
	var snapshot models.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND storage_key = ?", sessionID, key).
		Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(snapshot.Payload), nil
}

func (s *DBStorage) Save(ctx context.Context, sessionID, key string, payload []byte) error {
	snapshot := models.CartSnapshot{
		SessionID:  sessionID,
		StorageKey: key,
		Payload:    string(payload),
		UpdatedAt:  s.now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&snapshot).Error
}

func (s *DBStorage) Delete(ctx context.Context, sessionID, key string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ? AND storage_key = ?", sessionID, key).
		Delete(&models.CartSnapshot{}).Error
}

// DeleteStaleBefore drops snapshots untouched since cutoff.
func (s *DBStorage) DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff.UTC()).
		Delete(&models.CartSnapshot{})
	return res.RowsAffected, res.Error
}
