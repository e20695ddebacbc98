// Package cache 提供基于键值存储的泛型缓存实现，用于缓存单个条目的查询结果.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("dv.item."), cache.WithTTL(5*time.Minute))
//
//	item, err := cache.GetOrSet(ctx, c, id, func() (model.Item, error) {
//	    return store.GetByID(ctx, id)
//	})
//
//	// 条目被删除后失效
//	_ = c.Delete(ctx, id)
//
// 所有键都会加上前缀，Clear 只删除本缓存前缀下的键.
// 同一个键的并发回源通过 singleflight 合并.
// 缓存未命中不会被视为错误.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/docvault/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache miss")

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
}

// Option 缓存选项.
type Option func(*Cache)

// WithPrefix 设置键前缀.
func WithPrefix(prefix string) Option { return func(c *Cache) { c.prefix = prefix } }

// WithTTL 设置默认过期时间.
func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Cache) key(k string) string { return c.prefix + k }

// TTL 默认过期时间.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get 泛型获取缓存值，未命中时返回 ErrMiss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return zero, ErrMiss
		}

		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值，ttl<=0 时使用默认过期时间.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	if ttl <= 0 {
		ttl = c.ttl
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	var err error

	for _, k := range keys {
		err = errors.Join(err, c.kvStore.Delete(ctx, c.key(k)))
	}

	return err
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时回源并写入，同一键的并发回源只执行一次.
// 写缓存失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error)) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := getter()
		if err != nil {
			return value, err
		}

		_ = Set(ctx, c, key, value, 0)

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	value, _ := v.(T)

	return value, nil
}

// Clear 删除本缓存前缀下的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
