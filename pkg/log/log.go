// Package log 全局 zerolog logger：标准错误输出加可选的 lumberjack 滚动文件.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/docvault/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 按当前配置初始化全局 logger，只生效一次.
func Init() {
	initOnce.Do(func() {
		cfg := configs.GetConfig()
		logger = New(cfg.Log, cfg.Server.Debug, os.Stderr)
		log.Logger = logger
	})
}

// New 按配置构建 logger，debug 时附带调用位置.
func New(cfg configs.LogConfig, debug bool, stderr io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		if cfg.Level != "" {
			fmt.Fprintf(stderr, "invalid log level %q, using %s\n", cfg.Level, configs.DefaultLogLevel)
		}

		lvl, _ = zerolog.ParseLevel(configs.DefaultLogLevel)
	}

	zerolog.SetGlobalLevel(lvl)

	out := stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.DateTime}
	}

	if cfg.EnableFile && cfg.FilePath != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	c := zerolog.New(out).Level(lvl).With().Timestamp().Str("app", configs.AppName)
	if debug {
		c = c.Caller()
	}

	return c.Logger()
}

// Logger 返回全局 logger.
func Logger() *zerolog.Logger {
	Init()
	return &logger
}

// Component 带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// GinWriter 把 gin 的文本输出逐行转成固定级别的日志事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 用于 gin.DefaultWriter 与 gin.DefaultErrorWriter.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	for line := range bytes.Lines(p) {
		if msg := strings.TrimSpace(string(line)); msg != "" {
			w.logger.WithLevel(w.level).Str("source", "gin").Msg(msg)
		}
	}

	return len(p), nil
}
