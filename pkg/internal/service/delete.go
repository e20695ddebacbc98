package service

import (
	"context"
	"errors"

	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/store"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/metrics"
)

// Delete 删除条目，文件夹连同全部后代一起删除.
//
// 条目行在一个事务中删除；登记表与文件在提交之后清理，清理失败只记录日志，由对账任务修复.
func (s *ItemService) Delete(ctx context.Context, id string) (*types.DeleteItemResponse, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var removed []model.Item

	if item.IsFolder() {
		n, err := s.items.CountChildren(ctx, id)
		if err != nil {
			return nil, err
		}

		if n == 0 {
			removed, err = s.deleteEmptyFolder(ctx, item)
		} else {
			removed, err = s.items.DeleteTree(ctx, id)
		}

		if err != nil {
			return nil, err
		}
	} else {
		// 先删行再删登记，避免出现指向已删除文件的文档
		if _, err := s.items.Delete(ctx, id); err != nil {
			return nil, err
		}

		removed = []model.Item{*item}
	}

	filesRemoved := s.cleanup(ctx, removed)

	s.events.itemDeleted(ctx, item, removed, filesRemoved)

	return &types.DeleteItemResponse{
		Success: true,
		Message: deletedMessage(item.Type),
		Deleted: len(removed),
	}, nil
}

// deleteEmptyFolder 删除空文件夹；期间插入了子条目时改为整棵子树删除.
func (s *ItemService) deleteEmptyFolder(ctx context.Context, folder *model.Item) ([]model.Item, error) {
	_, err := s.items.Delete(ctx, folder.ID)
	if errors.Is(err, store.ErrHasChildren) {
		return s.items.DeleteTree(ctx, folder.ID)
	}

	if err != nil {
		return nil, err
	}

	return []model.Item{*folder}, nil
}

// cleanup 清理已删除条目的登记表记录、文件与缓存，返回删除的文件数.
func (s *ItemService) cleanup(ctx context.Context, removed []model.Item) int {
	ctx = context.WithoutCancel(ctx)

	files := 0
	ids := make([]string, 0, len(removed))

	for i := range removed {
		it := &removed[i]
		ids = append(ids, it.ID)

		metrics.ItemsDeleted.WithLabelValues(string(it.Type)).Inc()

		if !it.IsDocument() {
			continue
		}

		_, ok, err := s.registry.Remove(ctx, it.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("id", it.ID).Msg("failed to remove file record")
			continue
		}

		if ok {
			files++
		}
	}

	s.invalidate(ctx, ids...)

	return files
}

func deletedMessage(t model.ItemType) string {
	if t == model.ItemTypeFolder {
		return "Folder deleted successfully"
	}

	return "Document deleted successfully"
}
