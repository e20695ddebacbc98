package registry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	"github.com/yeisme/docvault/pkg/internal/storage/registry"
)

func newRegistry(t *testing.T) (*registry.Registry, *blob.Disk) {
	t.Helper()

	dir := t.TempDir()
	store, err := blob.NewDisk(dir)
	require.NoError(t, err)

	reg, err := registry.New(filepath.Join(dir, ".file_records"), store, 0)
	require.NoError(t, err)

	return reg, store
}

func TestPutGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	e := registry.Entry{OriginalName: "report.pdf", StoredName: "abc.pdf", Path: "/x/abc.pdf", Size: 3}
	require.NoError(t, reg.Put(ctx, "item-1", e))
	require.NoError(t, reg.Put(ctx, "item-1", e))

	got, ok, err := reg.Get(ctx, "item-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "report.pdf", got.OriginalName)
	assert.False(t, got.CreatedAt.IsZero())

	all, err := reg.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, ok, err = reg.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileLayoutIsObjectKeyedByID(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	require.NoError(t, reg.Put(ctx, "item-1", registry.Entry{OriginalName: "a.txt", StoredName: "s.txt", Path: "p"}))

	data, err := os.ReadFile(reg.Path())
	require.NoError(t, err)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Contains(t, raw, "item-1")
	assert.Equal(t, "a.txt", raw["item-1"]["originalName"])
	assert.Equal(t, "s.txt", raw["item-1"]["storedName"])
	assert.Equal(t, "p", raw["item-1"]["path"])
}

func TestRemoveUnlinksFile(t *testing.T) {
	ctx := context.Background()
	reg, store := newRegistry(t)

	_, err := store.Put(ctx, "stored.bin", strings.NewReader("data"), 4, "")
	require.NoError(t, err)
	require.NoError(t, reg.Put(ctx, "item-1", registry.Entry{StoredName: "stored.bin", Path: store.Location("stored.bin")}))

	_, ok, err := reg.Remove(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Stat(ctx, "stored.bin")
	assert.True(t, blob.IsNotExist(err))

	_, ok, err = reg.Remove(ctx, "item-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveToleratesMissingFile(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	require.NoError(t, reg.Put(ctx, "item-1", registry.Entry{StoredName: "gone.bin"}))

	_, ok, err := reg.Remove(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, reg.Put(ctx, fmt.Sprintf("item-%02d", i), registry.Entry{StoredName: "x"}))
		}()
	}

	wg.Wait()

	ids, err := reg.IDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 20)
	assert.Equal(t, "item-00", ids[0])
}

func TestCorruptFileReturnsError(t *testing.T) {
	reg, _ := newRegistry(t)
	require.NoError(t, os.WriteFile(reg.Path(), []byte("{not json"), 0o600))

	_, _, err := reg.Get(context.Background(), "x")
	require.Error(t, err)
}
