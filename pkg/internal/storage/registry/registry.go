// Package registry 维护文档 ID 到文件内容位置的登记表.
//
// 登记表是一个 JSON 对象，键为条目 ID，持久化在上传目录下的固定文件中.
// 读写都在进程内互斥锁与跨进程文件锁（flock）的保护下进行，写入采用临时文件加重命名.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofrs/flock"

	"github.com/yeisme/docvault/pkg/internal/storage/blob"
)

const (
	defaultLockTimeout = 3 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// ErrLockTimeout 获取登记表文件锁超时.
var ErrLockTimeout = errors.New("registry: could not acquire file lock")

// Entry 登记表记录.
type Entry struct {
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Registry 基于 JSON 文件的登记表.
type Registry struct {
	path        string
	store       blob.Store
	lock        *flock.Flock
	lockTimeout time.Duration
	mu          sync.Mutex
}

// New 创建登记表，store 用于删除记录时同步删除文件内容.
func New(path string, store blob.Store, lockTimeout time.Duration) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}

	return &Registry{
		path:        path,
		store:       store,
		lock:        flock.New(path + ".lock"),
		lockTimeout: lockTimeout,
	}, nil
}

// Path 登记表文件路径.
func (r *Registry) Path() string { return r.path }

// Put 写入或覆盖一条记录.
func (r *Registry) Put(ctx context.Context, itemID string, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	return r.update(ctx, func(records map[string]Entry) bool {
		records[itemID] = e
		return true
	})
}

// Get 查询记录，不存在时 ok 为 false.
func (r *Registry) Get(ctx context.Context, itemID string) (Entry, bool, error) {
	var (
		entry Entry
		ok    bool
	)

	err := r.withLock(ctx, func() error {
		records, err := r.load()
		if err != nil {
			return err
		}

		entry, ok = records[itemID]

		return nil
	})

	return entry, ok, err
}

// Remove 删除记录并删除对应的文件内容，文件已不存在时不报错.
func (r *Registry) Remove(ctx context.Context, itemID string) (Entry, bool, error) {
	var (
		entry Entry
		ok    bool
	)

	err := r.update(ctx, func(records map[string]Entry) bool {
		entry, ok = records[itemID]
		if ok {
			delete(records, itemID)
		}

		return ok
	})
	if err != nil || !ok {
		return entry, ok, err
	}

	if r.store != nil {
		if err := r.store.Remove(ctx, entry.StoredName); err != nil {
			return entry, true, fmt.Errorf("unlink %s: %w", entry.StoredName, err)
		}
	}

	return entry, true, nil
}

// All 返回全部记录的副本.
func (r *Registry) All(ctx context.Context) (map[string]Entry, error) {
	var records map[string]Entry

	err := r.withLock(ctx, func() error {
		var err error

		records, err = r.load()

		return err
	})

	return records, err
}

// IDs 返回按字典序排列的全部条目 ID.
func (r *Registry) IDs(ctx context.Context) ([]string, error) {
	records, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids, nil
}

// update 在锁内执行 读取-修改-写回，fn 返回 false 时不写回.
func (r *Registry) update(ctx context.Context, fn func(map[string]Entry) bool) error {
	return r.withLock(ctx, func() error {
		records, err := r.load()
		if err != nil {
			return err
		}

		if !fn(records) {
			return nil
		}

		return r.save(records)
	})
}

func (r *Registry) withLock(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	locked, err := r.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}

	if !locked {
		return ErrLockTimeout
	}

	defer func() { _ = r.lock.Unlock() }()

	return fn()
}

func (r *Registry) load() (map[string]Entry, error) {
	records := map[string]Entry{}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return records, nil
		}

		return nil, fmt.Errorf("read registry: %w", err)
	}

	if len(data) == 0 {
		return records, nil
	}

	if err := sonic.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	return records, nil
}

func (r *Registry) save(records map[string]Entry) error {
	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create registry temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("write registry: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close registry: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit registry: %w", err)
	}

	return nil
}
