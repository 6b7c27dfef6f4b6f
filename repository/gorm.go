package repository

import (
	"context"
	"errors"

	"goshortcode/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// NewRepoForTestWith is just for testing purposes (no calling AutoMigrate())
func NewRepoForTestWith(dial gorm.Dialector, cfg gorm.Config) (*GormRepository, error) {
	cfg.TranslateError = true
	db, err := gorm.Open(dial, &cfg)
	if err != nil {
		return nil, err
	}
	return &GormRepository{db: db}, nil
}

// GormRepository implements Repository for every dialect gorm is opened with.
type GormRepository struct {
	db *gorm.DB
}

func (g *GormRepository) Create(ctx context.Context, m *models.Mapping) error {
	if err := g.db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (g *GormRepository) GetByCode(ctx context.Context, code string) (*models.Mapping, error) {
	var result models.Mapping
	if err := g.db.WithContext(ctx).
		Where("short_code = ?", code).
		Take(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (g *GormRepository) GetByURL(ctx context.Context, url string) (*models.Mapping, error) {
	var result models.Mapping
	if err := g.db.WithContext(ctx).
		Where("original_url = ?", url).
		Order("id").
		Take(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (g *GormRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := g.db.WithContext(ctx).
		Model(&models.Mapping{}).
		Where("short_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *GormRepository) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation recognises unique index failures whether or not the
// dialector translated them into gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
