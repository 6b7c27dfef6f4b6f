package repository

import (
	"fmt"

	"goshortcode/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteRepo opens (or creates) the database file at path. SQLite allows a
// single writer, so the pool is limited to one connection.
func NewSQLiteRepo(path string, gcfg gorm.Config) (*GormRepository, error) {
	gcfg.TranslateError = true
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gcfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Mapping{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormRepository{db: db}, nil
}
