// Package app 提供应用程序的初始化、HTTP 引擎组装与生命周期管理.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/docvault/pkg/api"
	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/handle"
	"github.com/yeisme/docvault/pkg/internal/jobs"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/middleware"
	"github.com/yeisme/docvault/pkg/scheduler"
	"github.com/yeisme/docvault/pkg/tracing"
)

// App 持有 HTTP 服务及其依赖.
type App struct {
	Engine    *gin.Engine
	Server    *http.Server
	Storage   *storage.Manager
	Scheduler *scheduler.Scheduler

	config *configs.AppConfig
	log    zerolog.Logger
}

// NewApp 加载配置并初始化追踪、监控、存储与定时任务.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	// 初始化配置
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	if err := jobs.RegisterCronJobs(ctx, sched, manager, config.Jobs); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	l := log.Component("app")

	if manager.MQ != nil {
		service.RegisterAuditConsumers(manager.MQ, log.Component("audit"))
	}

	engine := NewEngine(config, manager, sched)

	return &App{
		Engine: engine,
		Server: &http.Server{
			Addr:              config.Server.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
			IdleTimeout:       config.Server.IdleTimeout,
		},
		Storage:   manager,
		Scheduler: sched,
		config:    config,
		log:       l,
	}, nil
}

// NewEngine 组装 gin 引擎：中间件、路由与监控端点. sched 可为空.
func NewEngine(config *configs.AppConfig, manager *storage.Manager, sched *scheduler.Scheduler) *gin.Engine {
	if config.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(handle.NoRoute)

	engine.Use(
		handle.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
	)

	if config.Server.Gzip {
		// 下载内容按原样流式返回
		engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/download$`})))
	}

	engine.Use(
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.RateLimit),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
		middleware.StorageMiddleware(manager),
	)

	if sched != nil {
		engine.Use(middleware.SchedulerMiddleware(sched))
	}

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, engine)
	}

	api.RegisterGroup(engine, config.Server.BasePath)

	return engine
}

// Run 启动 HTTP 服务、事件消费与定时任务，ctx 结束后优雅退出.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.Server.Addr).Msg("http server listening")

		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	if a.Storage.MQ != nil {
		g.Go(func() error {
			return a.Storage.MQ.Run(gctx)
		})
	}

	a.Scheduler.Start()

	if a.config.Jobs.ReconcileEnabled && a.config.Jobs.ReconcileOnStartup {
		g.Go(func() error {
			// 启动对账失败不影响服务
			_ = jobs.Reconcile(ctxPkg.WithStorageManager(gctx, a.Storage))
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown 依次停止 HTTP 服务、调度器、存储与追踪.
func (a *App) shutdown() error {
	a.log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	err := a.Server.Shutdown(ctx)
	err = errors.Join(err, a.Scheduler.Shutdown())
	err = errors.Join(err, a.Storage.Close())
	err = errors.Join(err, tracing.ShutdownTracer(ctx))

	if err != nil {
		a.log.Error().Err(err).Msg("shutdown incomplete")
		return err
	}

	a.log.Info().Msg("shutdown complete")

	return nil
}
