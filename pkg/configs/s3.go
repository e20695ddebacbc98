package configs

import (
	"net/url"

	"github.com/spf13/viper"
)

// S3 默认值对应本地 MinIO.
const (
	DefaultS3Endpoint        = "localhost:9000"
	DefaultS3AccessKeyID     = "minioadmin"
	DefaultS3SecretAccessKey = "minioadmin"
	DefaultS3BucketName      = "docvault"
	DefaultS3Region          = "us-east-1"
	DefaultS3Prefix          = "uploads/"
)

// S3Config S3 兼容对象存储，storage.backend 为 s3 时使用.
type S3Config struct {
	// Endpoint 可以是 host:port，也可以带 http(s):// 前缀，https 隐含 UseSSL.
	Endpoint        string `mapstructure:"endpoint"          rule:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"       rule:"required,min=3,max=63"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"` // 对象键前缀
}

// HostAndTLS 拆出 minio 需要的 host:port 与是否启用 TLS.
func (c *S3Config) HostAndTLS() (string, bool) {
	if u, err := url.Parse(c.Endpoint); err == nil && u.Host != "" {
		return u.Host, c.UseSSL || u.Scheme == "https"
	}

	return c.Endpoint, c.UseSSL
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.prefix", DefaultS3Prefix)
}
