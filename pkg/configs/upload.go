package configs

import "github.com/spf13/viper"

// DefaultCreatedBy 上传未提供 createdBy 时使用的值.
const DefaultCreatedBy = "Anonymous"

// UploadConfig 上传策略.
// DefaultCreatedBy 为空字符串时 createdBy 成为必填字段.
type UploadConfig struct {
	DefaultCreatedBy string `mapstructure:"default_created_by" rule:"max=255"`
}

func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.default_created_by", DefaultCreatedBy)
}
