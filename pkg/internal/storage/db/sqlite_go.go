//go:build !no_sqlite && !cgo

package db

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

// createSQLiteDialector 创建SQLite dialector (纯 Go 版本)，强制开启外键约束.
func createSQLiteDialector(dsn string) gorm.Dialector {
	return sqlite.Open(withSQLitePragmas(dsn, "foreign_keys(1)", "busy_timeout(5000)"))
}

// 注册SQLite dialector工厂函数.
func init() {
	RegisterDialectorFactory(createSQLiteDialector, configs.SQLite)
}

func withSQLitePragmas(dsn string, pragmas ...string) string {
	for _, p := range pragmas {
		name := p[:strings.IndexByte(p, '(')]
		if strings.Contains(dsn, "_pragma="+name) {
			continue
		}

		if strings.Contains(dsn, "?") {
			dsn += "&_pragma=" + p
		} else {
			dsn += "?_pragma=" + p
		}
	}

	return dsn
}
