package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tempPattern = ".upload-*"

// Disk 将对象保存为目录下的普通文件.
type Disk struct {
	root string
}

var _ Store = (*Disk)(nil)

// NewDisk 创建磁盘存储，目录不存在时自动创建.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}

	return &Disk{root: root}, nil
}

// Root 存储根目录.
func (d *Disk) Root() string { return d.root }

func (d *Disk) Name() string { return "local" }

// HealthCheck 检查根目录仍然存在且是目录.
func (d *Disk) HealthCheck(_ context.Context) error {
	info, err := os.Stat(d.root)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d.root)
	}

	return nil
}

// Location 返回对象在磁盘上的路径.
func (d *Disk) Location(key string) string {
	return filepath.Join(d.root, key)
}

func (d *Disk) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	return filepath.Join(d.root, key), nil
}

// Put 先写临时文件再重命名，失败时不留下半个文件.
func (d *Disk) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (int64, error) {
	dst, err := d.path(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(d.root, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		cleanup()
		return n, fmt.Errorf("write object %s: %w", key, err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return n, fmt.Errorf("commit object %s: %w", key, err)
	}

	return n, nil
}

func (d *Disk) Open(_ context.Context, key string) (io.ReadCloser, Object, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, Object{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotExist
		}

		return nil, Object{}, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, err
	}

	return f, Object{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (d *Disk) Stat(_ context.Context, key string) (Object, error) {
	p, err := d.path(key)
	if err != nil {
		return Object{}, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, ErrNotExist
		}

		return Object{}, err
	}

	return Object{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (d *Disk) Remove(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// List 列出根目录下的普通文件，隐藏文件（登记表、锁、临时文件）被忽略.
func (d *Disk) List(ctx context.Context) ([]Object, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	objects := make([]Object, 0, len(entries))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		objects = append(objects, Object{Key: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	return objects, nil
}

// ctxReader 在每次读取前检查 context，便于中断大文件写入.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
