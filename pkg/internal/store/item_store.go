// Package store 封装条目表的读写，负责把数据库约束错误翻译为业务错误.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
)

const (
	// deleteBatchSize 单条 DELETE 语句中 IN 子句的最大 ID 数.
	deleteBatchSize = 500
	likeEscape      = "!"
)

// 文件夹排在文档前，同类型按名称升序.
const orderByTypeThenName = "CASE type WHEN 'FOLDER' THEN 0 ELSE 1 END, name ASC, id ASC"

// ErrHasChildren 单行删除时条目仍有子条目（外键 RESTRICT）.
var ErrHasChildren = errors.New("item still has children")

// ListFilter 列表查询条件，ParentID 为 nil 表示根目录.
type ListFilter struct {
	ParentID     *string
	Type         model.ItemType
	NameContains string
	Limit        int
	Offset       int
}

// ItemStore 条目表访问.
type ItemStore struct {
	db *gorm.DB
}

// NewItemStore 创建条目存储.
func NewItemStore(db *gorm.DB) *ItemStore {
	return &ItemStore{db: db}
}

// DB 底层连接.
func (s *ItemStore) DB() *gorm.DB { return s.db }

func (s *ItemStore) scoped(ctx context.Context, f ListFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&model.Item{})

	if f.ParentID == nil || *f.ParentID == "" {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *f.ParentID)
	}

	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	if f.NameContains != "" {
		q = q.Where("name LIKE ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(f.NameContains)+"%")
	}

	return q
}

// ListChildren 返回某一层级下的条目，文件夹在前，按名称排序.
func (s *ItemStore) ListChildren(ctx context.Context, f ListFilter) ([]model.Item, error) {
	q := s.scoped(ctx, f).Order(orderByTypeThenName)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	items := make([]model.Item, 0)
	if err := q.Find(&items).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	return items, nil
}

// Count 返回满足条件的条目总数，忽略分页参数.
func (s *ItemStore) Count(ctx context.Context, f ListFilter) (int64, error) {
	var n int64
	if err := s.scoped(ctx, f).Count(&n).Error; err != nil {
		return 0, apperr.Internal(err)
	}

	return n, nil
}

// GetByID 按 ID 查询，不存在时返回 NOT_FOUND.
func (s *ItemStore) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item

	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "Item not found")
	}

	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &item, nil
}

// ResolveParent 校验父级存在且为文件夹.
func (s *ItemStore) ResolveParent(ctx context.Context, parentID *string) (*model.Item, error) {
	if parentID == nil || *parentID == "" {
		return nil, nil
	}

	parent, err := s.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Parent folder not found")
		}

		return nil, err
	}

	if !parent.IsFolder() {
		return nil, apperr.New(apperr.KindInvalidParent, "Parent must be a folder")
	}

	return parent, nil
}

// NameTaken 检查同一层级下是否已有同类型同名条目.
func (s *ItemStore) NameTaken(ctx context.Context, parentID *string, typ model.ItemType, name string) (bool, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.Item{}).
		Where("scope_key = ? AND type = ? AND name = ?", model.ScopeOf(parentID), typ, name).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, apperr.Internal(err)
	}

	return n > 0, nil
}

// Create 插入条目，唯一索引冲突翻译为 DUPLICATE_NAME，父级外键失败翻译为 NOT_FOUND.
func (s *ItemStore) Create(ctx context.Context, item *model.Item) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return translateWriteError(err, item.Type)
	}

	return nil
}

// CountChildren 返回直接子条目数.
func (s *ItemStore) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.Item{}).Where("parent_id = ?", parentID).Count(&n).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}

	return n, nil
}

// Delete 删除单行，不处理级联，返回是否确实删除.
func (s *ItemStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return false, fmt.Errorf("delete %s: %w", id, ErrHasChildren)
		}

		return false, apperr.Internal(res.Error)
	}

	return res.RowsAffected > 0, nil
}

// Subtree 用显式工作队列按层收集以 id 为根的子树，levels[0] 为根.
func (s *ItemStore) Subtree(ctx context.Context, id string) ([][]model.Item, error) {
	return collectSubtree(ctx, s.db, id)
}

func collectSubtree(ctx context.Context, db *gorm.DB, id string) ([][]model.Item, error) {
	var root model.Item

	err := db.WithContext(ctx).Where("id = ?", id).Take(&root).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	levels := [][]model.Item{{root}}
	frontier := []string{}

	if root.IsFolder() {
		frontier = append(frontier, root.ID)
	}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var children []model.Item

		for _, batch := range chunk(frontier, deleteBatchSize) {
			var part []model.Item
			if err := db.WithContext(ctx).Where("parent_id IN ?", batch).Order(orderByTypeThenName).Find(&part).Error; err != nil {
				return nil, err
			}

			children = append(children, part...)
		}

		if len(children) == 0 {
			break
		}

		levels = append(levels, children)

		frontier = frontier[:0]

		for _, c := range children {
			if c.IsFolder() {
				frontier = append(frontier, c.ID)
			}
		}
	}

	return levels, nil
}

// DeleteTree 在一个事务中删除条目及其全部后代，先删最深层，返回后序（子先于父）的已删除条目.
// 条目不存在时返回空切片，便于重试.
func (s *ItemStore) DeleteTree(ctx context.Context, id string) ([]model.Item, error) {
	var deleted []model.Item

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		levels, err := collectSubtree(ctx, tx, id)
		if err != nil {
			return err
		}

		deleted = make([]model.Item, 0, countItems(levels))

		for i := len(levels) - 1; i >= 0; i-- {
			ids := make([]string, 0, len(levels[i]))
			for j := len(levels[i]) - 1; j >= 0; j-- {
				ids = append(ids, levels[i][j].ID)
				deleted = append(deleted, levels[i][j])
			}

			for _, batch := range chunk(ids, deleteBatchSize) {
				if err := tx.Where("id IN ?", batch).Delete(&model.Item{}).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return deleted, nil
}

// TypesByID 批量查询条目类型，不存在的 ID 不出现在结果中.
func (s *ItemStore) TypesByID(ctx context.Context, ids []string) (map[string]model.ItemType, error) {
	result := make(map[string]model.ItemType, len(ids))

	for _, batch := range chunk(ids, deleteBatchSize) {
		var rows []struct {
			ID   string
			Type model.ItemType
		}

		err := s.db.WithContext(ctx).Model(&model.Item{}).Select("id", "type").Where("id IN ?", batch).Find(&rows).Error
		if err != nil {
			return nil, apperr.Internal(err)
		}

		for _, r := range rows {
			result[r.ID] = r.Type
		}
	}

	return result, nil
}

func translateWriteError(err error, typ model.ItemType) error {
	msg := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "duplicate"):
		return apperr.Wrap(apperr.KindDuplicateName, duplicateMessage(typ), err)
	case isForeignKeyViolation(err):
		return apperr.Wrap(apperr.KindNotFound, "Parent folder not found", err)
	default:
		return apperr.Internal(err)
	}
}

func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) ||
		strings.Contains(strings.ToLower(err.Error()), "foreign key")
}

// duplicateMessage 同名冲突的提示信息.
func duplicateMessage(typ model.ItemType) string {
	if typ == model.ItemTypeFolder {
		return "A folder with this name already exists in this location"
	}

	return "A document with this name already exists in this location"
}

// DuplicateError 构造同名冲突错误.
func DuplicateError(typ model.ItemType) error {
	return apperr.New(apperr.KindDuplicateName, duplicateMessage(typ))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

func chunk(ids []string, size int) [][]string {
	var out [][]string

	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}

	if len(ids) > 0 {
		out = append(out, ids)
	}

	return out
}

func countItems(levels [][]model.Item) int {
	n := 0
	for _, l := range levels {
		n += len(l)
	}

	return n
}
