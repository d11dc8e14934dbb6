package orm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// APICache stores cached API responses
type APICache struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte // Raw JSON
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// Cache is a TTL cache of provider responses backed by APICache rows.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewCache migrates the cache table and returns a cache whose entries live
// for ttl.
func NewCache(db *gorm.DB, ttl time.Duration) (*Cache, error) {
	if err := db.AutoMigrate(&APICache{}); err != nil {
		return nil, fmt.Errorf("failed to migrate api cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value for key if it has not expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry APICache
	err := c.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, c.now()).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// Set upserts a cache entry
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	now := c.now()
	entry := APICache{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	return c.db.WithContext(ctx).Save(&entry).Error
}

// Cleanup removes expired entries
func (c *Cache) Cleanup(ctx context.Context) (int64, error) {
	res := c.db.WithContext(ctx).Where("expires_at <= ?", c.now()).Delete(&APICache{})
	return res.RowsAffected, res.Error
}

// CacheKey derives a fixed-length key from a prefix and request fields.
func CacheKey(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}
