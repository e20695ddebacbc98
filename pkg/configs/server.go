package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort     = 8080
	DefaultHost     = "0.0.0.0"
	DefaultBasePath = "/api"
	DefaultGzip     = true

	// 上传体可能很大，只限制读请求头的时间.
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
	DefaultShutdownTimeout   = 30 * time.Second
)

// ServerConfig HTTP 服务.
type ServerConfig struct {
	Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
	Host         string `mapstructure:"host"          rule:"ip|hostname"`
	BasePath     string `mapstructure:"base_path"     rule:"startswith=/"`
	ReloadConfig bool   `mapstructure:"reload_config"` // 配置文件变更时热加载
	Debug        bool   `mapstructure:"debug"`         // gin 调试模式、swagger 与调用位置日志

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"gt=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        rule:"gte=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    rule:"gt=0"`

	// CORSOrigins 为空时允许任意来源.
	CORSOrigins []string `mapstructure:"cors_origins"`
	Gzip        bool     `mapstructure:"gzip"`
}

// Addr 监听地址 host:port.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.base_path", DefaultBasePath)
	v.SetDefault("server.reload_config", false)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.gzip", DefaultGzip)
}
