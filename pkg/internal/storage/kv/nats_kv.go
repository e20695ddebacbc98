package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yeisme/docvault/pkg/configs"
)

// NATSKV 基于 JetStream KV bucket，过期时间随值一起保存，读到过期值时顺带删除.
type NATSKV struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
}

// NewNATSKV 连接 NATS 并创建（或复用）bucket.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok || cfg == nil {
		return nil, errors.New("invalid NATS config")
	}

	var opts []nats.Option
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, append(opts, nats.Name(configs.AppName+"-kv"))...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cfg.Bucket, History: 1})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open KV bucket %q: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, bucket: bucket}, nil
}

// load 读取并解包，过期或不存在时返回 ErrNotFound.
func (n *NATSKV) load(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.bucket.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	val, live, err := unseal(entry.Value(), time.Now())
	if err != nil {
		return nil, err
	}

	if !live {
		_ = n.bucket.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return val, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.load(ctx, key)
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	sealed, err := seal(value, ttl, time.Now())
	if err != nil {
		return err
	}

	if _, err := n.bucket.Put(ctx, key, sealed); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	if err := n.bucket.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 遍历 bucket 的键并在本地按模式过滤，跳过已过期的键.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.bucket.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	out := make([]string, 0)

	for key := range lister.Keys() {
		if !matchPattern(pattern, key) {
			continue
		}

		if _, err := n.load(ctx, key); err != nil {
			continue
		}

		out = append(out, key)
	}

	return out, nil
}

func (n *NATSKV) Close() error {
	return n.conn.Drain()
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
