package repository

import (
	"fmt"

	"goshortcode/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PGConfig struct {
	Host         string
	Port         int
	User         string
	DBName       string
	Password     string
	SSLMode      string
	TimeZone     string
	MaxOpenConns int
}

func NewPGRepo(cfg PGConfig, gcfg gorm.Config) (*GormRepository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName, cfg.Password, cfg.SSLMode, cfg.TimeZone)
	gcfg.TranslateError = true
	db, err := gorm.Open(postgres.Open(dsn), &gcfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.AutoMigrate(&models.Mapping{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormRepository{db: db}, nil
}
