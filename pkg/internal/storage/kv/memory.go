package kv

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// memEntry 以指针形式存入 sync.Map，CompareAndDelete 按地址比较.
type memEntry struct {
	raw []byte
}

// MemoryKV 基于 sync.Map 的内存 KV 实现，过期时间在读取时惰性检查.
type MemoryKV struct {
	data sync.Map // 并发安全的 map
}

// NewMemoryKV 创建内存 KV 实例.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	// 内存实现不需要特殊配置
	return &MemoryKV{}, nil
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return bytes.Clone(data), nil
}

func (m *MemoryKV) load(key string) ([]byte, bool) {
	value, exists := m.data.Load(key)
	if !exists {
		return nil, false
	}

	entry, ok := value.(*memEntry)
	if !ok {
		return nil, false
	}

	data, live, err := unseal(entry.raw, time.Now())
	if err != nil {
		return nil, false
	}

	if !live {
		// 只删除仍是同一条目的过期值，并发 Set 的新值保留
		m.data.CompareAndDelete(key, entry)
		return nil, false
	}

	return data, true
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	sealed, err := seal(bytes.Clone(value), ttl, time.Now())
	if err != nil {
		return err
	}

	m.data.Store(key, &memEntry{raw: sealed})

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.load(key)
	return ok, nil
}

// Keys 获取所有匹配的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0)

	m.data.Range(func(key, _ any) bool {
		k, ok := key.(string)
		if !ok {
			return true // 继续遍历
		}

		if _, live := m.load(k); live && matchPattern(pattern, k) {
			keys = append(keys, k)
		}

		return true
	})

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
