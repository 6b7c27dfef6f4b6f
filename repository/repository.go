package repository

import (
	"context"
	"errors"

	"goshortcode/models"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateKey reports that a write was rejected by a unique index.
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrNotImplemented = errors.New("not implemented")
)

type Repository interface {
	// Create inserts m and fills its ID and CreatedAt. It returns
	// ErrDuplicateKey when a unique index rejects the row.
	Create(ctx context.Context, m *models.Mapping) error
	GetByCode(ctx context.Context, code string) (*models.Mapping, error)
	// GetByURL returns the oldest mapping for url.
	GetByURL(ctx context.Context, url string) (*models.Mapping, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Ping(ctx context.Context) error
}

// Unwrapper is implemented by decorators, such as caches, that sit in front
// of another Repository.
type Unwrapper interface {
	Unwrap() Repository
}

// Uncached returns the innermost Repository behind r. Reads made through it
// see committed rows even when a decorator holds an older answer.
func Uncached(r Repository) Repository {
	for {
		u, ok := r.(Unwrapper)
		if !ok {
			return r
		}
		r = u.Unwrap()
	}
}

// UnimplementedRepository can be embedded by test doubles that only need a
// subset of Repository.
type UnimplementedRepository struct{}

func (UnimplementedRepository) Create(ctx context.Context, m *models.Mapping) error {
	return ErrNotImplemented
}

func (UnimplementedRepository) GetByCode(ctx context.Context, code string) (*models.Mapping, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedRepository) GetByURL(ctx context.Context, url string) (*models.Mapping, error) {
	return nil, ErrNotImplemented
}

func (UnimplementedRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	return false, ErrNotImplemented
}

func (UnimplementedRepository) Ping(ctx context.Context) error {
	return nil
}
