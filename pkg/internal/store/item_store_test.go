package store_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/store"
)

func newStore(t *testing.T) *store.ItemStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "items.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Item{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return store.NewItemStore(db)
}

func mustFolder(t *testing.T, s *store.ItemStore, name string, parent *model.Item) *model.Item {
	t.Helper()

	var pid *string
	if parent != nil {
		pid = &parent.ID
	}

	f := model.NewFolder(model.NewID(), name, pid, "tester")
	require.NoError(t, s.Create(context.Background(), f))

	return f
}

func mustDoc(t *testing.T, s *store.ItemStore, name string, parent *model.Item) *model.Item {
	t.Helper()

	var pid *string
	if parent != nil {
		pid = &parent.ID
	}

	d := model.NewDocument(model.NewID(), name, pid, "tester", model.FileMeta{})
	require.NoError(t, s.Create(context.Background(), d))

	return d
}

func TestListChildrenOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	finance := mustFolder(t, s, "Finance", nil)
	mustDoc(t, s, "alpha.txt", nil)
	mustFolder(t, s, "Archive", nil)
	mustDoc(t, s, "nested.txt", finance)

	items, err := s.ListChildren(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Archive", items[0].Name)
	assert.Equal(t, "Finance", items[1].Name)
	assert.Equal(t, "alpha.txt", items[2].Name)

	docs, err := s.ListChildren(ctx, store.ListFilter{Type: model.ItemTypeDocument})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	inFinance, err := s.ListChildren(ctx, store.ListFilter{ParentID: &finance.ID})
	require.NoError(t, err)
	require.Len(t, inFinance, 1)
	assert.Equal(t, "nested.txt", inFinance[0].Name)

	search, err := s.ListChildren(ctx, store.ListFilter{NameContains: "chiv"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Archive", search[0].Name)

	total, err := s.Count(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	page, err := s.ListChildren(ctx, store.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Finance", page[0].Name)
}

func TestSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	mustDoc(t, s, "100%_done.txt", nil)
	mustDoc(t, s, "100 done.txt", nil)

	items, err := s.ListChildren(ctx, store.ListFilter{NameContains: "%_"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100%_done.txt", items[0].Name)
}

func TestCreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	mustFolder(t, s, "Finance", nil)

	err := s.Create(ctx, model.NewFolder(model.NewID(), "Finance", nil, "x"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindDuplicateName, apperr.KindOf(err))

	taken, err := s.NameTaken(ctx, nil, model.ItemTypeFolder, "Finance")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = s.NameTaken(ctx, nil, model.ItemTypeDocument, "Finance")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	const n = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)

	for range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := s.Create(ctx, model.NewFolder(model.NewID(), "Race", nil, "x"))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				oks++
			case apperr.KindOf(err) == apperr.KindDuplicateName:
				dups++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, oks)

	total, err := s.Count(ctx, store.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestResolveParent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	folder := mustFolder(t, s, "f", nil)
	doc := mustDoc(t, s, "d", nil)

	p, err := s.ResolveParent(ctx, &folder.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, p.ID)

	_, err = s.ResolveParent(ctx, &doc.ID)
	assert.Equal(t, apperr.KindInvalidParent, apperr.KindOf(err))

	missing := model.NewID()
	_, err = s.ResolveParent(ctx, &missing)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	p, err = s.ResolveParent(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetByIDNotFound(t *testing.T) {
	_, err := newStore(t).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.KindNotFound)
}

func TestDeleteTreeRemovesAllDescendants(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := mustFolder(t, s, "A", nil)
	b := mustFolder(t, s, "B", a)
	c := mustFolder(t, s, "C", b)
	d1 := mustDoc(t, s, "d1", b)
	d2 := mustDoc(t, s, "d2", c)
	d3 := mustDoc(t, s, "d3", a)
	keep := mustFolder(t, s, "Keep", nil)

	deleted, err := s.DeleteTree(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, deleted, 6)

	// 子条目必须先于父条目出现
	pos := map[string]int{}
	for i, it := range deleted {
		pos[it.ID] = i
	}

	for _, it := range deleted {
		if it.ParentID != nil {
			assert.Less(t, pos[it.ID], pos[*it.ParentID])
		}
	}

	assert.Equal(t, a.ID, deleted[len(deleted)-1].ID)

	for _, id := range []string{a.ID, b.ID, c.ID, d1.ID, d2.ID, d3.ID} {
		_, err := s.GetByID(ctx, id)
		assert.ErrorIs(t, err, apperr.KindNotFound)
	}

	_, err = s.GetByID(ctx, keep.ID)
	require.NoError(t, err)

	// 重复删除为空操作
	again, err := s.DeleteTree(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDeleteSingleRowAndChildrenCount(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := mustFolder(t, s, "A", nil)
	doc := mustDoc(t, s, "x", a)

	n, err := s.CountChildren(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := s.Delete(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteFolderWithChildReportsHasChildren(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := mustFolder(t, s, "A", nil)
	mustDoc(t, s, "x", a)

	ok, err := s.Delete(ctx, a.ID)
	require.ErrorIs(t, err, store.ErrHasChildren)
	assert.False(t, ok)

	_, err = s.GetByID(ctx, a.ID)
	require.NoError(t, err)
}

func TestTypesByID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	f := mustFolder(t, s, "f", nil)
	d := mustDoc(t, s, "d", nil)

	types, err := s.TypesByID(ctx, []string{f.ID, d.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]model.ItemType{f.ID: model.ItemTypeFolder, d.ID: model.ItemTypeDocument}, types)
}
