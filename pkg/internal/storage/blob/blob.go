// Package blob 定义文档内容的存储接口，提供本地磁盘与 S3 两种实现.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotExist 对象不存在.
var ErrNotExist = errors.New("blob: object does not exist")

// Object 对象的基本信息.
type Object struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Store 文档内容存储.
type Store interface {
	// Put 写入对象，size 未知时传 -1，返回实际写入的字节数.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	// Open 打开对象用于读取，调用方负责关闭.
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	// Stat 返回对象信息，不存在时返回 ErrNotExist.
	Stat(ctx context.Context, key string) (Object, error)
	// Remove 删除对象，对象不存在不视为错误.
	Remove(ctx context.Context, key string) error
	// List 列出全部对象，不包含登记表等内部文件.
	List(ctx context.Context) ([]Object, error)
	// Location 返回对象的可读位置，写入登记表的 path 字段.
	Location(key string) string
	// Name 后端名称.
	Name() string
}

// IsNotExist 判断是否为对象不存在错误.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// HealthChecker 可自检的存储后端.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check 检查存储是否可用，后端未实现 HealthChecker 时退化为 List.
func Check(ctx context.Context, s Store) error {
	if s == nil {
		return errors.New("blob store not initialized")
	}

	if hc, ok := s.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}

	_, err := s.List(ctx)

	return err
}
