package configs

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// StorageBackend 文件内容存储后端.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

const (
	DefaultStorageBackend = StorageLocal
	DefaultUploadDir      = "uploads"       // 上传文件目录
	DefaultRegistryFile   = ".file_records" // 文件登记表，位于上传目录内
	DefaultMaxUploadBytes = 50 << 20        // 单文件上传上限 50MB
	DefaultOrphanGrace    = time.Hour       // 未登记文件的保留时间，超过后由对账任务清理
	DefaultLockTimeout    = 3 * time.Second // 登记表文件锁等待时间
)

// StorageConfig 文件内容与登记表配置.
type StorageConfig struct {
	Backend        StorageBackend `mapstructure:"backend"          rule:"oneof=local s3"`
	UploadDir      string         `mapstructure:"upload_dir"       rule:"required"`
	RegistryFile   string         `mapstructure:"registry_file"    rule:"required"`
	MaxUploadBytes int64          `mapstructure:"max_upload_bytes" rule:"min=1"`
	OrphanGrace    time.Duration  `mapstructure:"orphan_grace"     rule:"min=0"`
	LockTimeout    time.Duration  `mapstructure:"lock_timeout"     rule:"min=0"`
}

// RegistryPath 返回登记表的完整路径.
func (c *StorageConfig) RegistryPath() string {
	if filepath.IsAbs(c.RegistryFile) {
		return c.RegistryFile
	}

	return filepath.Join(c.UploadDir, c.RegistryFile)
}

func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", DefaultStorageBackend)
	v.SetDefault("storage.upload_dir", DefaultUploadDir)
	v.SetDefault("storage.registry_file", DefaultRegistryFile)
	v.SetDefault("storage.max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("storage.orphan_grace", DefaultOrphanGrace)
	v.SetDefault("storage.lock_timeout", DefaultLockTimeout)
}
