package cacher

import (
	"context"
	"time"

	"goshortcode/models"
)

// Entry is a cached lookup result. A nil Mapping records that the code was
// not found.
type Entry struct {
	Mapping *models.Mapping
}

type Engine interface {
	// Get returns found == false on a cache miss; err is reserved for engine failures.
	Get(ctx context.Context, key string) (entry *Entry, found bool, err error)
	Set(ctx context.Context, key string, entry *Entry, expiration time.Duration) error
	// Add stores entry only when key holds nothing; added reports whether it did.
	Add(ctx context.Context, key string, entry *Entry, expiration time.Duration) (added bool, err error)
	Delete(ctx context.Context, key string) error
}
