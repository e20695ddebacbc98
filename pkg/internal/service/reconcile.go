package service

import (
	"context"
	"sort"
	"time"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/queue"
)

// Reconcile 修复登记表与条目表、文件存储之间的偏差.
//
//  1. 条目不存在或不是文档的登记记录被删除（连同文件）
//  2. 文件缺失的登记记录只报告
//  3. 未被任何记录引用且超过保留时间的文件被删除
//
// 新写入的记录与文件在保留时间内不处理，避免与进行中的上传冲突.
func (s *ItemService) Reconcile(ctx context.Context) (*types.ReconcileReport, error) {
	started := time.Now()
	report := &types.ReconcileReport{
		StaleEntries:   []string{},
		MissingContent: []string{},
		OrphanFiles:    []string{},
		StartedAt:      started.UTC(),
	}

	// 先列文件再读登记表，列表中已登记的文件一定能在快照中找到
	objects, err := s.blobs.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	entries, err := s.registry.All(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	typesByID, err := s.items.TypesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	cutoff := started.Add(-s.opts.OrphanGrace)
	referenced := make(map[string]struct{}, len(entries))

	for _, id := range ids {
		entry := entries[id]

		if typ, ok := typesByID[id]; (!ok || typ != model.ItemTypeDocument) && entry.CreatedAt.Before(cutoff) {
			if _, _, err := s.registry.Remove(ctx, id); err != nil {
				s.log.Warn().Err(err).Str("id", id).Msg("failed to remove stale file record")
				referenced[entry.StoredName] = struct{}{}

				continue
			}

			metrics.ReconcileRemoved.WithLabelValues("entry").Inc()
			report.StaleEntries = append(report.StaleEntries, id)

			continue
		}

		referenced[entry.StoredName] = struct{}{}

		if _, err := s.blobs.Stat(ctx, entry.StoredName); err != nil {
			if !blob.IsNotExist(err) {
				return nil, apperr.Internal(err)
			}

			report.MissingContent = append(report.MissingContent, id)
		}
	}

	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok || obj.ModTime.After(cutoff) {
			continue
		}

		if err := s.blobs.Remove(ctx, obj.Key); err != nil {
			s.log.Warn().Err(err).Str("key", obj.Key).Msg("failed to remove orphan file")
			continue
		}

		metrics.ReconcileRemoved.WithLabelValues("file").Inc()
		report.OrphanFiles = append(report.OrphanFiles, obj.Key)
	}

	report.Duration = time.Since(started)

	s.invalidate(ctx, report.StaleEntries...)

	publish(ctx, s.events, queue.TopicRegistryReconciled, queue.RegistryReconciledPayload{
		StaleEntries:   report.StaleEntries,
		MissingContent: report.MissingContent,
		OrphanFiles:    report.OrphanFiles,
		StartedAt:      report.StartedAt,
		Duration:       report.Duration.String(),
	})

	s.log.Info().
		Int("stale_entries", len(report.StaleEntries)).
		Int("missing_content", len(report.MissingContent)).
		Int("orphan_files", len(report.OrphanFiles)).
		Dur("duration", report.Duration).
		Msg("registry reconciled")

	return report, nil
}
