package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/docvault/pkg/cache"
	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/internal/model"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/storage/kv"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
	"github.com/yeisme/docvault/pkg/internal/types"
	"github.com/yeisme/docvault/pkg/queue"
)

type fixture struct {
	svc      *service.ItemService
	disk     *blob.Disk
	registry *registry.Registry
	events   *recorder
}

// recorder 记录发布的消息.
type recorder struct {
	mu   sync.Mutex
	msgs []*message.Message
}

func (r *recorder) Publish(_ context.Context, _ string, msgs ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msgs...)

	return nil
}

func (r *recorder) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Metadata.Get("topic"))
	}

	return out
}

func newFixture(t *testing.T, mutate ...func(*service.Options)) *fixture {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "items.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

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

	disk, err := blob.NewDisk(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	reg, err := registry.New(filepath.Join(disk.Root(), configs.DefaultRegistryFile), disk, time.Second)
	require.NoError(t, err)

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	rec := &recorder{}

	opts := service.Options{
		MaxUploadBytes:   1 << 20,
		DefaultCreatedBy: configs.DefaultCreatedBy,
		OrphanGrace:      time.Hour,
		Events: configs.EventsConfig{
			Enabled:  true,
			Producer: "test",
			Item:     configs.ItemEventsConfig{Created: true, Uploaded: true, Deleted: true, Reconciled: true},
		},
	}
	for _, m := range mutate {
		m(&opts)
	}

	svc := service.New(service.Deps{
		DB:        db,
		Blob:      disk,
		Registry:  reg,
		Cache:     cache.NewCache(store, cache.WithPrefix("test:item:"), cache.WithTTL(time.Minute)),
		Publisher: rec,
	}, opts)

	return &fixture{svc: svc, disk: disk, registry: reg, events: rec}
}

func (f *fixture) folder(t *testing.T, name string, parent *model.Item) *model.Item {
	t.Helper()

	req := &types.CreateFolderRequest{Name: name, CreatedBy: "alice"}
	if parent != nil {
		req.ParentID = &parent.ID
	}

	item, err := f.svc.CreateFolder(context.Background(), req)
	require.NoError(t, err)

	return item
}

func (f *fixture) upload(t *testing.T, fileName, content string, parent *model.Item) *model.Item {
	t.Helper()

	req := &types.UploadRequest{CreatedBy: "bob"}
	if parent != nil {
		req.ParentID = &parent.ID
	}

	item, err := f.svc.Upload(context.Background(), req, fileName, "text/plain", strings.NewReader(content))
	require.NoError(t, err)

	return item
}

func (f *fixture) objects(t *testing.T) []blob.Object {
	t.Helper()

	objs, err := f.disk.List(context.Background())
	require.NoError(t, err)

	return objs
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()

	require.Error(t, err)
	require.True(t, errors.Is(err, kind), "want %s, got %v", kind, err)

	e, ok := apperr.As(err)
	require.True(t, ok)

	return e
}

func ptr[T any](v T) *T { return &v }

func TestCreateFolderTrimsAndListsFoldersFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "alpha.txt", CreatedBy: "alice", FileSizeBytes: ptr[int64](12)})
	require.NoError(t, err)

	folder := f.folder(t, "  Zeta  ", nil)
	assert.Equal(t, "Zeta", folder.Name)
	assert.Nil(t, folder.ParentID)
	assert.Nil(t, folder.FileSizeBytes)

	items, err := f.svc.List(ctx, &types.ListItemsQuery{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.ItemTypeFolder, items[0].Type)
	assert.Equal(t, "alpha.txt", items[1].Name)
	require.NotNil(t, items[1].FileSizeBytes)
	assert.Equal(t, int64(12), *items[1].FileSizeBytes)

	docs, err := f.svc.List(ctx, &types.ListItemsQuery{Type: "DOCUMENT", Q: "alp"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "alpha.txt", docs[0].Name)
}

func TestListRejectsUnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), &types.ListItemsQuery{Type: "LINK"})
	e := requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, e.Details, "type")
}

func TestCreateFolderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "   ", CreatedBy: "alice"})
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "is required", e.Details["name"])

	_, err = f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: strings.Repeat("x", 256), CreatedBy: ""})
	e = requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, e.Details, "name")
	assert.Contains(t, e.Details, "createdBy")

	_, err = f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "a", CreatedBy: "alice", FileSizeBytes: ptr[int64](-1)})
	e = requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, e.Details, "fileSizeBytes")
}

func TestCreateRequiresFolderParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "doc", CreatedBy: "alice"})
	require.NoError(t, err)

	_, err = f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "child", ParentID: &doc.ID, CreatedBy: "alice"})
	e := requireKind(t, err, apperr.KindInvalidParent)
	assert.Equal(t, "Parent must be a folder", e.Message)

	_, err = f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "child", ParentID: ptr("01MISSINGPARENT0000000000"), CreatedBy: "alice"})
	e = requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, "Parent folder not found", e.Message)

	root := f.folder(t, "root", nil)
	child := f.folder(t, "child", root)
	assert.Equal(t, root.ID, *child.ParentID)

	// 空字符串的 parentId 视为根目录
	top, err := f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "top", ParentID: ptr(""), CreatedBy: "alice"})
	require.NoError(t, err)
	assert.Nil(t, top.ParentID)
}

func TestDuplicateNamesPerScopeAndType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.folder(t, "Reports", nil)

	_, err := f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "Reports", CreatedBy: "bob"})
	e := requireKind(t, err, apperr.KindDuplicateName)
	assert.Equal(t, "A folder with this name already exists in this location", e.Message)

	// 不同类型或不同层级不冲突
	_, err = f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "Reports", CreatedBy: "bob"})
	require.NoError(t, err)

	f.folder(t, "Reports", root)

	// 大小写敏感
	f.folder(t, "reports", nil)
}

func TestConcurrentCreateHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		conflict int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.CreateFolder(ctx, &types.CreateFolderRequest{Name: "Shared", CreatedBy: "alice"})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				created++
			case errors.Is(err, apperr.KindDuplicateName):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflict)
}

func TestGetUsesCacheAndReportsMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, "cached", nil)

	got, err := f.svc.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.Name, got.Name)

	// 第二次读取命中缓存
	got, err = f.svc.Get(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, got.ID)

	_, err = f.svc.Get(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}

func TestUploadAndDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.folder(t, "inbox", nil)
	doc := f.upload(t, "notes.txt", "hello world", parent)

	assert.Equal(t, model.ItemTypeDocument, doc.Type)
	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "bob", doc.CreatedBy)
	require.NotNil(t, doc.FileSizeBytes)
	assert.Equal(t, int64(11), *doc.FileSizeBytes)
	require.NotNil(t, doc.Extension)
	assert.Equal(t, "txt", *doc.Extension)
	require.NotNil(t, doc.MimeType)
	assert.Equal(t, "text/plain", *doc.MimeType)

	entry, ok, err := f.registry.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", entry.OriginalName)
	assert.True(t, strings.HasSuffix(entry.StoredName, ".txt"))
	assert.Equal(t, f.disk.Location(entry.StoredName), entry.Path)
	assert.Equal(t, int64(11), entry.Size)
	assert.NotEmpty(t, entry.Checksum)

	dl, err := f.svc.Open(ctx, doc.ID)
	require.NoError(t, err)
	defer dl.Body.Close()

	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(body))
	assert.Equal(t, "notes.txt", dl.FileName)
	assert.Equal(t, "text/plain", dl.MimeType)
}

func TestUploadKeepsUnusualExtension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, want := range map[string]string{
		"backup.tar-gz~":             "tar-gz~",
		"data.abcdefghijklmnopqrstu": "abcdefghijklmnopqrstu",
	} {
		doc := f.upload(t, name, "x", nil)
		require.NotNil(t, doc.Extension, name)
		assert.Equal(t, want, *doc.Extension, name)

		entry, ok, err := f.registry.Get(ctx, doc.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotContains(t, entry.StoredName, ".", name)
	}
}

func TestUploadNameOverrideAndDefaultCreator(t *testing.T) {
	f := newFixture(t)

	doc, err := f.svc.Upload(context.Background(), &types.UploadRequest{Name: " Q3 report "}, "raw.bin", "", bytes.NewReader([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, "Q3 report", doc.Name)
	assert.Equal(t, configs.DefaultCreatedBy, doc.CreatedBy)
	require.NotNil(t, doc.MimeType)
	assert.Equal(t, "application/octet-stream", *doc.MimeType)
}

func TestUploadRequiresCreatorWhenNoDefault(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.DefaultCreatedBy = "" })

	_, err := f.svc.Upload(context.Background(), &types.UploadRequest{}, "a.txt", "text/plain", strings.NewReader("a"))
	e := requireKind(t, err, apperr.KindValidation)
	assert.Equal(t, "is required", e.Details["createdBy"])
	assert.Empty(t, f.objects(t))
}

func TestUploadTooLargeRemovesStagedFile(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.MaxUploadBytes = 4 })

	_, err := f.svc.Upload(context.Background(), &types.UploadRequest{}, "big.txt", "text/plain", strings.NewReader("0123456789"))
	requireKind(t, err, apperr.KindFileTooLarge)
	assert.Empty(t, f.objects(t))

	// 恰好等于上限可以上传
	_, err = f.svc.Upload(context.Background(), &types.UploadRequest{}, "ok.txt", "text/plain", strings.NewReader("0123"))
	require.NoError(t, err)
	assert.Len(t, f.objects(t), 1)
}

func TestUploadRejectionsRemoveStagedFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upload(t, "dup.txt", "first", nil)
	require.Len(t, f.objects(t), 1)

	_, err := f.svc.Upload(ctx, &types.UploadRequest{}, "dup.txt", "text/plain", strings.NewReader("second"))
	e := requireKind(t, err, apperr.KindDuplicateName)
	assert.Equal(t, "A document with this name already exists in this location", e.Message)
	assert.Len(t, f.objects(t), 1)

	doc, err := f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "meta", CreatedBy: "alice"})
	require.NoError(t, err)

	_, err = f.svc.Upload(ctx, &types.UploadRequest{ParentID: &doc.ID}, "x.txt", "text/plain", strings.NewReader("x"))
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.svc.Upload(ctx, &types.UploadRequest{ParentID: ptr("nope")}, "x.txt", "text/plain", strings.NewReader("x"))
	requireKind(t, err, apperr.KindNotFound)

	assert.Len(t, f.objects(t), 1)

	_, err = f.svc.Upload(ctx, &types.UploadRequest{}, "", "", nil)
	requireKind(t, err, apperr.KindNoFile)
}

func TestDownloadErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)

	folder := f.folder(t, "docs", nil)
	_, err = f.svc.Open(ctx, folder.ID)
	requireKind(t, err, apperr.KindInvalidType)

	meta, err := f.svc.CreateDocument(ctx, &types.CreateDocumentRequest{Name: "meta-only", CreatedBy: "alice"})
	require.NoError(t, err)

	_, err = f.svc.Open(ctx, meta.ID)
	requireKind(t, err, apperr.KindFileNotFound)

	doc := f.upload(t, "gone.txt", "bye", nil)
	entry, ok, err := f.registry.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, os.Remove(entry.Path))

	_, err = f.svc.Open(ctx, doc.ID)
	requireKind(t, err, apperr.KindFileNotFound)
}

func TestDeleteFolderCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.folder(t, "A", nil)
	b := f.folder(t, "B", a)
	docA := f.upload(t, "a.txt", "a", a)
	f.upload(t, "b.txt", "b", b)
	other := f.upload(t, "keep.txt", "keep", nil)

	// 预热缓存，删除后必须失效
	_, err := f.svc.Get(ctx, docA.ID)
	require.NoError(t, err)

	resp, err := f.svc.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Folder deleted successfully", resp.Message)
	assert.Equal(t, 4, resp.Deleted)

	for _, id := range []string{a.ID, b.ID, docA.ID} {
		_, err := f.svc.Get(ctx, id)
		requireKind(t, err, apperr.KindNotFound)
	}

	ids, err := f.registry.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids)
	assert.Len(t, f.objects(t), 1)

	_, err = f.svc.Delete(ctx, a.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeleteEmptyFolderAndDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.folder(t, "empty", nil)
	resp, err := f.svc.Delete(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Deleted)

	doc := f.upload(t, "report.pdf", "%PDF", nil)
	resp, err = f.svc.Delete(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Document deleted successfully", resp.Message)

	_, err = f.svc.Open(ctx, doc.ID)
	requireKind(t, err, apperr.KindNotFound)

	_, ok, err := f.registry.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.objects(t))
}

func TestDeleteEmptyFolderRacingChildInsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, "inbox", nil)
	db := f.svc.Store().DB()

	var (
		inserted bool
		late     = model.NewFolder(model.NewID(), "late", &folder.ID, "carol")
		lateErr  error
	)

	// 单行删除执行前从另一连接插入子条目
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:insert_child", func(tx *gorm.DB) {
		if inserted {
			return
		}

		inserted = true
		lateErr = db.Session(&gorm.Session{NewDB: true, Context: ctx}).Create(late).Error
	}))

	resp, err := f.svc.Delete(ctx, folder.ID)
	require.NoError(t, err)
	require.NoError(t, lateErr)
	assert.Equal(t, 2, resp.Deleted)

	for _, id := range []string{folder.ID, late.ID} {
		_, err := f.svc.Get(ctx, id)
		requireKind(t, err, apperr.KindNotFound)
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.OrphanGrace = time.Minute })
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)

	kept := f.upload(t, "kept.txt", "kept", nil)
	missing := f.upload(t, "missing.txt", "missing", nil)

	entry, _, err := f.registry.Get(ctx, missing.ID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(entry.Path))

	// 指向不存在条目的旧记录
	_, err = f.disk.Put(ctx, "stale.bin", strings.NewReader("stale"), -1, "")
	require.NoError(t, err)
	require.NoError(t, f.registry.Put(ctx, "01STALEENTRY0000000000000", registry.Entry{
		OriginalName: "stale.bin",
		StoredName:   "stale.bin",
		Path:         f.disk.Location("stale.bin"),
		CreatedAt:    past,
	}))

	// 未登记的旧文件与新文件
	_, err = f.disk.Put(ctx, "orphan.bin", strings.NewReader("orphan"), -1, "")
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(f.disk.Location("orphan.bin"), past, past))
	_, err = f.disk.Put(ctx, "fresh.bin", strings.NewReader("fresh"), -1, "")
	require.NoError(t, err)

	report, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"01STALEENTRY0000000000000"}, report.StaleEntries)
	assert.Equal(t, []string{missing.ID}, report.MissingContent)
	assert.Equal(t, []string{"orphan.bin"}, report.OrphanFiles)

	keys := make([]string, 0)
	for _, o := range f.objects(t) {
		keys = append(keys, o.Key)
	}

	assert.NotContains(t, keys, "stale.bin")
	assert.NotContains(t, keys, "orphan.bin")
	assert.Contains(t, keys, "fresh.bin")

	keptEntry, ok, err := f.registry.Get(ctx, kept.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, keys, keptEntry.StoredName)
}

func TestEventsPublishedForLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	folder := f.folder(t, "events", nil)
	f.upload(t, "e.txt", "e", folder)

	_, err := f.svc.Delete(ctx, folder.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{
		queue.TopicItemCreated,
		queue.TopicItemCreated,
		queue.TopicDocumentUploaded,
		queue.TopicItemDeleted,
	}, f.events.topics())

	f.events.mu.Lock()
	last := f.events.msgs[len(f.events.msgs)-1]
	f.events.mu.Unlock()

	env, err := queue.ParseItemDeleted(last)
	require.NoError(t, err)
	assert.Equal(t, folder.ID, env.Payload.Item.ID)
	assert.Equal(t, 2, env.Payload.Deleted)
	assert.Equal(t, 1, env.Payload.FilesRemoved)
	assert.Equal(t, "test", env.Header.Producer)
}

func TestEventsDisabled(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.Events.Enabled = false })

	f.folder(t, "quiet", nil)
	assert.Empty(t, f.events.topics())
}
