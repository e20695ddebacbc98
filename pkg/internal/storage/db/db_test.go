package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
)

func openTestDB(t *testing.T) *db.Client {
	t.Helper()

	cfg := configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "items.db"),
		MaxIdleConns: 2,
		AutoMigrate:  true,
	}

	client, err := db.Open(context.Background(), cfg, false, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRegisteredDBTypes(t *testing.T) {
	types := db.GetRegisteredDBTypes()
	assert.Contains(t, types, configs.SQLite)
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := db.Open(context.Background(), configs.DBConfig{Type: "oracle", Database: "x"}, false, false)
	require.Error(t, err)
}

func TestUniqueNamePerScope(t *testing.T) {
	client := openTestDB(t)
	ctx := context.Background()

	root := model.NewFolder(model.NewID(), "Reports", nil, "alice")
	require.NoError(t, client.WithContext(ctx).Create(root).Error)

	dup := model.NewFolder(model.NewID(), "Reports", nil, "bob")
	err := client.WithContext(ctx).Create(dup).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// 不同类型可以同名
	doc := model.NewDocument(model.NewID(), "Reports", nil, "bob", model.FileMeta{})
	require.NoError(t, client.WithContext(ctx).Create(doc).Error)

	// 不同父级可以同名
	child := model.NewFolder(model.NewID(), "Reports", &root.ID, "bob")
	require.NoError(t, client.WithContext(ctx).Create(child).Error)
}

func TestParentForeignKeyEnforced(t *testing.T) {
	client := openTestDB(t)
	ctx := context.Background()

	missing := model.NewID()
	orphan := model.NewDocument(model.NewID(), "a.txt", &missing, "alice", model.FileMeta{})
	require.Error(t, client.WithContext(ctx).Create(orphan).Error)

	parent := model.NewFolder(model.NewID(), "p", nil, "alice")
	require.NoError(t, client.WithContext(ctx).Create(parent).Error)

	child := model.NewFolder(model.NewID(), "c", &parent.ID, "alice")
	require.NoError(t, client.WithContext(ctx).Create(child).Error)

	// 有子条目时不能直接删除父文件夹
	require.Error(t, client.WithContext(ctx).Delete(&model.Item{}, "id = ?", parent.ID).Error)
}

func TestPing(t *testing.T) {
	client := openTestDB(t)
	require.NoError(t, client.Ping(context.Background()))
}
