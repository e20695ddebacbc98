// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/docvault/pkg/configs"
	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/scheduler"
)

// RegisterCronJobs 按配置注册业务定时任务：
//   - registry.reconcile 周期性对账文件登记表、存储内容与条目表
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, mgr *storage.Manager, cfg configs.JobsConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if mgr == nil {
		return errors.New("storage manager is nil")
	}

	if !cfg.ReconcileEnabled {
		log.Logger().Info().Str("job", JobRegistryReconcile).Msg("job disabled")
		return nil
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(ctx, mgr)

	return sched.AddCron(baseCtx, JobRegistryReconcile, cfg.ReconcileCron, Reconcile)
}

// Reconcile 执行一次对账，ctx 中需携带 storage manager.
func Reconcile(ctx context.Context) error {
	l := log.Logger().With().Str("job", JobRegistryReconcile).Logger()

	report, err := service.NewItemService(ctx).Reconcile(ctx)
	if err != nil {
		l.Error().Err(err).Msg("reconcile failed")
		return err
	}

	l.Debug().
		Int("stale_entries", len(report.StaleEntries)).
		Int("missing_content", len(report.MissingContent)).
		Int("orphan_files", len(report.OrphanFiles)).
		Dur("took", report.Duration).
		Msg("reconcile done")

	return nil
}
