//go:build !no_sqlite && cgo

package db

import (
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (CGo版本)，强制开启外键约束.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withSQLiteParams(dsn, "_foreign_keys=1", "_busy_timeout=5000"))
}

// 注册SQLite dialector工厂函数 (CGo版本).
func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}

func withSQLiteParams(dsn string, params ...string) string {
	for _, p := range params {
		key := p[:strings.IndexByte(p, '=')]
		if strings.Contains(dsn, key) {
			continue
		}

		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}

	return dsn
}
