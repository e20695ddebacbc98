package service

import (
	"context"
	"errors"
	"strings"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/store"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/rule"
)

const validationFailed = "Request validation failed"

// validate 执行 rule 标签校验，失败时返回带字段详情的 VALIDATION_ERROR.
func validate(v any) error {
	err := rule.ValidateStruct(v)
	if err == nil {
		return nil
	}

	if details := rule.Errors(err); details != nil {
		return apperr.Validation(validationFailed, details)
	}

	return apperr.Wrap(apperr.KindValidation, validationFailed, err)
}

// parentOf 将空字符串与 nil 视为根目录.
func parentOf(id *string) *string {
	if id == nil {
		return nil
	}

	p := strings.TrimSpace(*id)
	if p == "" {
		return nil
	}

	return &p
}

// List 列出某一层级的条目.
func (s *ItemService) List(ctx context.Context, q *types.ListItemsQuery) ([]model.Item, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	return s.items.ListChildren(ctx, store.ListFilter{
		ParentID:     parentOf(&q.ParentID),
		Type:         model.ItemType(q.Type),
		NameContains: q.Q,
		Limit:        q.Limit,
		Offset:       q.Offset,
	})
}

// Get 按 ID 获取条目，命中缓存时不查库.
func (s *ItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	if s.cache == nil {
		return s.items.GetByID(ctx, id)
	}

	item, err := cache.GetOrSet(ctx, s.cache, id, func() (model.Item, error) {
		it, err := s.items.GetByID(ctx, id)
		if err != nil {
			return model.Item{}, err
		}

		return *it, nil
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// CreateFolder 创建文件夹.
func (s *ItemService) CreateFolder(ctx context.Context, req *types.CreateFolderRequest) (*model.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}

	parentID := parentOf(req.ParentID)

	item := model.NewFolder(model.NewID(), req.Name, parentID, req.CreatedBy)
	if err := s.create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// CreateDocument 只创建文档元数据，不关联文件内容.
func (s *ItemService) CreateDocument(ctx context.Context, req *types.CreateDocumentRequest) (*model.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}

	parentID := parentOf(req.ParentID)

	item := model.NewDocument(model.NewID(), req.Name, parentID, req.CreatedBy, model.FileMeta{SizeBytes: req.FileSizeBytes})
	if err := s.create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// create 校验父级与同名冲突后写入，唯一索引兜底并发创建.
func (s *ItemService) create(ctx context.Context, item *model.Item) error {
	if _, err := s.items.ResolveParent(ctx, item.ParentID); err != nil {
		return err
	}

	taken, err := s.items.NameTaken(ctx, item.ParentID, item.Type, item.Name)
	if err != nil {
		return err
	}

	if taken {
		return store.DuplicateError(item.Type)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return err
	}

	metrics.ItemsCreated.WithLabelValues(string(item.Type)).Inc()
	s.events.itemCreated(ctx, item)

	return nil
}

// invalidate 删除缓存中的条目，失败只记录日志.
func (s *ItemService) invalidate(ctx context.Context, ids ...string) {
	if s.cache == nil || len(ids) == 0 {
		return
	}

	if err := s.cache.Delete(ctx, ids...); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Int("count", len(ids)).Msg("failed to invalidate item cache")
	}
}
