package configs

import (
	"time"

	"github.com/spf13/viper"
)

// 限流与熔断默认值，二者默认关闭.
const (
	DefaultRateLimitRPS   = 50.0
	DefaultRateLimitBurst = 100
	DefaultRateLimitKey   = "ip"
	// DefaultRateLimitIdle 按键限流器闲置多久后回收.
	DefaultRateLimitIdle = 10 * time.Minute

	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBInterval          = time.Minute
	DefaultCBOpenTimeout       = 30 * time.Second
	DefaultCBMaxRequestsInHalf = 5
)

// RateLimitConfig 请求限流.
//
// Key 决定限流维度：global 全局共享，ip 按客户端地址，header:<Name> 按请求头（缺失时回退到 ip）.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     float64       `mapstructure:"rps"          rule:"gte=0"`
	Burst   int           `mapstructure:"burst"        rule:"gte=0"`
	Key     string        `mapstructure:"key"`
	Idle    time.Duration `mapstructure:"idle"         rule:"gte=0"`
	// ExemptPaths 以这些前缀开头的路径不限流，例如健康检查与监控抓取.
	ExemptPaths []string `mapstructure:"exempt_paths"`
}

// CircuitBreakerConfig 5xx 比例熔断.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	FailureRate float64       `mapstructure:"failure_rate"         rule:"gte=0,lte=1"`
	MinRequests uint32        `mapstructure:"min_requests"`
	Interval    time.Duration `mapstructure:"interval"             rule:"gte=0"` // 关闭状态下清零计数的周期
	OpenTimeout time.Duration `mapstructure:"open_timeout"         rule:"gte=0"` // 打开后多久进入半开
	// MaxRequestsInHalf 半开状态允许通过的请求数.
	MaxRequestsInHalf uint32 `mapstructure:"max_requests_in_half"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.idle", DefaultRateLimitIdle)
	v.SetDefault("rate_limit.exempt_paths", []string{"/health", "/metrics"})
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval", DefaultCBInterval)
	v.SetDefault("circuit_breaker.open_timeout", DefaultCBOpenTimeout)
	v.SetDefault("circuit_breaker.max_requests_in_half", DefaultCBMaxRequestsInHalf)
}
