// Package service 实现条目相关的业务操作，协调条目表、文件登记表与文件内容存储.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
	"github.com/yeisme/docvault/pkg/internal/store"
	"github.com/yeisme/docvault/pkg/queue"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Deps 服务依赖，Cache 与 Publisher 可为空.
type Deps struct {
	DB        *gorm.DB
	Blob      blob.Store
	Registry  *registry.Registry
	Cache     *cache.Cache
	Publisher queue.Publisher
}

// Options 业务策略.
type Options struct {
	MaxUploadBytes int64
	// DefaultCreatedBy 上传未提供 createdBy 时使用的值，为空时该字段必填.
	DefaultCreatedBy string
	// OrphanGrace 未登记文件的保留时间.
	OrphanGrace time.Duration
	Events      configs.EventsConfig
}

// OptionsFrom 从应用配置中提取业务策略.
func OptionsFrom(cfg *configs.AppConfig) Options {
	return Options{
		MaxUploadBytes:   cfg.Storage.MaxUploadBytes,
		DefaultCreatedBy: cfg.Upload.DefaultCreatedBy,
		OrphanGrace:      cfg.Storage.OrphanGrace,
		Events:           cfg.Events,
	}
}

// ItemService 条目服务.
type ItemService struct {
	items    *store.ItemStore
	blobs    blob.Store
	registry *registry.Registry
	cache    *cache.Cache
	events   *eventSink
	opts     Options
	log      zerolog.Logger
}

// New 使用显式依赖创建服务.
func New(deps Deps, opts Options) *ItemService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = configs.DefaultMaxUploadBytes
	}

	l := nlog.Component("service")

	return &ItemService{
		items:    store.NewItemStore(deps.DB),
		blobs:    deps.Blob,
		registry: deps.Registry,
		cache:    deps.Cache,
		events:   newEventSink(deps.Publisher, opts.Events, l),
		opts:     opts,
		log:      l,
	}
}

// NewItemService 从请求上下文中的存储管理器创建服务.
func NewItemService(c context.Context) *ItemService {
	deps := Deps{
		Blob:     ctxPkg.GetBlobStore(c),
		Registry: ctxPkg.GetRegistry(c),
		Cache:    ctxPkg.GetCache(c),
	}

	if dbc := ctxPkg.GetDBClient(c); dbc != nil {
		deps.DB = dbc.DB
	}

	// nil 的 *mq.Client 不能直接赋给接口
	if mqc := ctxPkg.GetMQClient(c); mqc != nil {
		deps.Publisher = mqc
	}

	return New(deps, OptionsFrom(configs.GetConfig()))
}

// Store 条目存储.
func (s *ItemService) Store() *store.ItemStore { return s.items }
