// Package storage 聚合应用用到的全部存储资源：数据库、文档内容、登记表、缓存与消息队列.
//
// Example:
//
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
//	db := mgr.GetDBClient()
//	reg := mgr.GetRegistry()
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	dbc "github.com/yeisme/docvault/pkg/internal/storage/db"
	kvc "github.com/yeisme/docvault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/docvault/pkg/internal/storage/mq"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
	s3c "github.com/yeisme/docvault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Manager 聚合所有存储资源，KV、Cache、MQ 未启用时为 nil.
type Manager struct {
	DB       *dbc.Client
	Blob     blob.Store
	S3       *s3c.Client
	Registry *registry.Registry
	KV       *kvc.Client
	Cache    *cache.Cache
	MQ       *mqc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化存储，重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// New 按配置创建存储管理器，任一必需组件失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	fail := func(err error) (*Manager, error) {
		_ = m.Close()
		return nil, err
	}

	db, err := dbc.Open(ctx, cfg.DB, cfg.Metrics.Enabled, cfg.Server.Debug)
	if err != nil {
		return fail(err)
	}

	m.DB = db

	if err := m.openBlob(ctx, cfg); err != nil {
		return fail(err)
	}

	reg, err := registry.New(cfg.Storage.RegistryPath(), m.Blob, cfg.Storage.LockTimeout)
	if err != nil {
		return fail(err)
	}

	m.Registry = reg

	if cfg.Cache.Enabled {
		kv, err := kvc.NewKVClient(ctx, cfg.KV)
		if err != nil {
			return fail(fmt.Errorf("init kv: %w", err))
		}

		m.KV = kv
		m.Cache = cache.NewCache(kv, cache.WithPrefix(cfg.Cache.Prefix), cache.WithTTL(cfg.Cache.TTL))
	}

	if cfg.Events.Enabled {
		mq, err := mqc.Open(ctx, cfg.MQ, cfg.Metrics.Enabled && cfg.MQ.Common.EnableMetrics)
		if err != nil {
			return fail(err)
		}

		m.MQ = mq
	}

	nlog.Logger().Info().
		Str("blob", m.Blob.Name()).
		Str("registry", reg.Path()).
		Bool("cache", m.Cache != nil).
		Bool("events", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) openBlob(ctx context.Context, cfg *configs.AppConfig) error {
	switch cfg.Storage.Backend {
	case configs.StorageS3:
		client, err := s3c.New(ctx, cfg.S3)
		if err != nil {
			return err
		}

		m.S3 = client
		m.Blob = client
	default:
		disk, err := blob.NewDisk(cfg.Storage.UploadDir)
		if err != nil {
			return err
		}

		m.Blob = disk
	}

	return nil
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var err error

	if m.MQ != nil {
		err = errors.Join(err, m.MQ.Close())
	}

	if m.KV != nil {
		err = errors.Join(err, m.KV.Close())
	}

	if m.S3 != nil {
		err = errors.Join(err, m.S3.Close())
	}

	if m.DB != nil {
		err = errors.Join(err, m.DB.Close())
	}

	return err
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client { return m.DB }

// GetBlobStore 获取文档内容存储.
func (m *Manager) GetBlobStore() blob.Store { return m.Blob }

// GetS3Client 获取 S3 客户端，本地存储时为 nil.
func (m *Manager) GetS3Client() *s3c.Client { return m.S3 }

// GetRegistry 获取文件登记表.
func (m *Manager) GetRegistry() *registry.Registry { return m.Registry }

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client { return m.KV }

// GetCache 获取条目缓存.
func (m *Manager) GetCache() *cache.Cache { return m.Cache }

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client { return m.MQ }

// HealthCheck 检查数据库与文档存储.
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	return map[string]error{
		"db":      m.DB.Ping(ctx),
		"storage": blob.Check(ctx, m.Blob),
	}
}
