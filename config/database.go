package config

import (
	"fmt"

	"github.com/yeremiapane/trashunter/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the configured database. sqlite is the default; mysql is used
// for shared deployments.
func InitDB(cfg DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("InitDB - unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("InitDB - gorm.Open: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; one connection avoids "database is locked"
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("InitDB - db.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	utils.InfoLogger.Printf("Connected to %s database", cfg.Driver)
	return db, nil
}
