package inmemory

import (
	"context"
	"time"

	"goshortcode/cache/cacher"

	gocache "github.com/patrickmn/go-cache"
)

// New returns an in-memory cache for default usage.
func New(defaultExp, defaultClearInterval time.Duration) cacher.Engine {
	return &inMemory{
		engine: gocache.New(defaultExp, defaultClearInterval),
	}
}

type inMemory struct {
	engine *gocache.Cache
}

func (i *inMemory) Get(ctx context.Context, key string) (*cacher.Entry, bool, error) {
	data, found := i.engine.Get(key)
	if !found {
		return nil, false, nil
	}
	entry, ok := data.(cacher.Entry)
	if !ok {
		i.engine.Delete(key)
		return nil, false, nil
	}
	if entry.Mapping != nil {
		// hand out a copy so callers cannot alter the cached value
		m := *entry.Mapping
		entry.Mapping = &m
	}
	return &entry, true, nil
}

func (i *inMemory) Set(ctx context.Context, key string, entry *cacher.Entry, expiration time.Duration) error {
	i.engine.Set(key, clone(entry), expiration)
	return nil
}

func (i *inMemory) Add(ctx context.Context, key string, entry *cacher.Entry, expiration time.Duration) (bool, error) {
	// go-cache only fails Add when an unexpired item exists
	if err := i.engine.Add(key, clone(entry), expiration); err != nil {
		return false, nil
	}
	return true, nil
}

func clone(entry *cacher.Entry) cacher.Entry {
	stored := cacher.Entry{}
	if entry.Mapping != nil {
		m := *entry.Mapping
		stored.Mapping = &m
	}
	return stored
}

func (i *inMemory) Delete(ctx context.Context, key string) error {
	i.engine.Delete(key)
	return nil
}
