//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/docvault/pkg/configs"
)

func init() {
	// PrepareStmt 已在 gorm 层开启，驱动侧不再做语句缓存
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	}, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
