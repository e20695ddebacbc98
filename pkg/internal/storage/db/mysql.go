//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

// name 列长度 255，默认字符串长度与之对齐.
const mysqlStringSize = 255

func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return mysql.New(mysql.Config{
			DSN:               dsn,
			DefaultStringSize: mysqlStringSize,
		})
	}, configs.MySQL, configs.MariaDB)
}
