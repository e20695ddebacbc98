// Package s3 处理S3存储操作，作为文档内容的对象存储后端.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/blob"
	nlog "github.com/yeisme/docvault/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client

	bucket string
	prefix string
}

var _ blob.Store = (*Client)(nil)

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg configs.S3Config) (*Client, error) {
	endpoint, secure := cfg.HostAndTLS()

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.BucketName, prefix: normalizePrefix(cfg.Prefix)}, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimLeft(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	return p
}

func (c *Client) objectKey(key string) string {
	return c.prefix + key
}

func (c *Client) Name() string { return "s3" }

// Location 返回 s3://bucket/key 形式的位置.
func (c *Client) Location(key string) string {
	return "s3://" + path.Join(c.bucket, c.objectKey(key))
}

// Put 上传对象，size 为 -1 时由 minio 分片上传.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	info, err := c.PutObject(ctx, c.bucket, c.objectKey(key), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("upload object %s: %w", key, err)
	}

	return info.Size, nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, blob.Object, error) {
	obj, err := c.Stat(ctx, key)
	if err != nil {
		return nil, blob.Object{}, err
	}

	rc, err := c.GetObject(ctx, c.bucket, c.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, blob.Object{}, translate(err)
	}

	return rc, obj, nil
}

func (c *Client) Stat(ctx context.Context, key string) (blob.Object, error) {
	info, err := c.StatObject(ctx, c.bucket, c.objectKey(key), minio.StatObjectOptions{})
	if err != nil {
		return blob.Object{}, translate(err)
	}

	return blob.Object{Key: key, Size: info.Size, ModTime: info.LastModified}, nil
}

func (c *Client) Remove(ctx context.Context, key string) error {
	err := c.RemoveObject(ctx, c.bucket, c.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil && !blob.IsNotExist(translate(err)) {
		return fmt.Errorf("remove object %s: %w", key, err)
	}

	return nil
}

// List 列出前缀下的全部对象.
func (c *Client) List(ctx context.Context) ([]blob.Object, error) {
	opts := minio.ListObjectsOptions{Prefix: c.prefix, Recursive: true}

	// 提前返回时停止后台列举
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []blob.Object

	for info := range c.ListObjects(ctx, c.bucket, opts) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}

		key := strings.TrimPrefix(info.Key, c.prefix)
		if key == "" || strings.Contains(key, "/") {
			continue
		}

		objects = append(objects, blob.Object{Key: key, Size: info.Size, ModTime: info.LastModified})
	}

	return objects, nil
}

// HealthCheck 检查 bucket 是否可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)
	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

func translate(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return blob.ErrNotExist
	}

	return err
}
