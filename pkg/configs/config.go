// Package configs 管理应用程序配置，包括服务、数据库、文件存储、缓存与消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv），支持环境变量覆盖并可启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing Storage config:
//
//	config := configs.GetConfig()
//	fmt.Println("registry:", config.Storage.RegistryPath())
//	fmt.Println("limit:", config.Storage.MaxUploadBytes)
//
// 环境变量使用 DOCVAULT_ 前缀，层级以下划线分隔，例如 DOCVAULT_SERVER_PORT=9000.
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yeisme/docvault/pkg/rule"
)

const (
	// AppName 应用名称.
	AppName = "docvault"
	// AppVersion 应用版本.
	AppVersion = "1.0.0"
	// EnvPrefix 环境变量前缀.
	EnvPrefix = "DOCVAULT"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 监听地址、调试模式、CORS 等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		Storage        StorageConfig        `mapstructure:"storage"`         // StorageConfig 文件内容与登记表
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		Upload         UploadConfig         `mapstructure:"upload"`          // UploadConfig 上传策略
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		Cache          CacheConfig          `mapstructure:"cache"`           // CacheConfig 条目缓存
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪
		Jobs           JobsConfig           `mapstructure:"jobs"`            // JobsConfig 定时任务
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并按需启用热重载.
// 找不到配置文件时使用默认值与环境变量.
func InitConfig(path string) error {
	v, err := Load(path)
	if err != nil {
		return err
	}

	appViper = v

	reloadConfigs(appViper, globalConfig.Server.ReloadConfig)

	return nil
}

// Load 读取配置到全局实例并返回所用的 Viper，不启用热重载.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	// 设置默认值
	setAllDefaults(v)

	loadDotEnv(path)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		v.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		v.SetConfigName("config")
		v.AddConfigPath(path)
		v.AddConfigPath(filepath.Join(path, "configs"))

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				break
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg

	return v, nil
}

// Validate 按 rule 标签校验配置.
func (c *AppConfig) Validate() error {
	if err := rule.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// loadDotEnv 读取配置目录与工作目录下的 .env，已存在的环境变量优先.
func loadDotEnv(path string) {
	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	for _, f := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.Server.setDefaults(v)
	c.Log.setDefaults(v)
	c.DB.setDefaults(v)
	c.Storage.setDefaults(v)
	c.S3.setDefaults(v)
	c.Upload.setDefaults(v)
	c.KV.setDefaults(v)
	c.Cache.setDefaults(v)
	c.MQ.setDefaults(v)
	c.Events.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Tracing.setDefaults(v)
	c.Jobs.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)
		fmt.Println("Reloading configuration...")

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Printf("Ignoring invalid config: %v\n", err)
			return
		}

		globalConfig = cfg
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	return appViper
}

// SetConfig 替换全局配置，供命令行与测试注入.
func SetConfig(cfg AppConfig) {
	globalConfig = cfg
}

// Defaults 返回仅包含默认值的配置.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}
