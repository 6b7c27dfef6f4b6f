package cache

import (
	"context"
	"errors"
	"time"

	"goshortcode/cache/cacher"
	"goshortcode/metrics"
	"goshortcode/models"
	"goshortcode/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultHitExp       = 24 * time.Hour
	DefaultMissExp      = 5 * time.Second
	DefaultQueryTimeout = 30 * time.Second
)

type Config struct {
	// HitExp bounds memory use only; mappings never change once created.
	HitExp time.Duration
	// MissExp is how long a code may be reported missing after another
	// instance creates it.
	MissExp time.Duration
	// QueryTimeout bounds a database lookup shared by concurrent callers.
	QueryTimeout time.Duration
}

// New wraps db with a read-through cache for lookups by code.
func New(db repository.Repository, engine cacher.Engine, logger *zap.Logger, m *metrics.Metrics, cfg Config) repository.Repository {
	if cfg.HitExp <= 0 {
		cfg.HitExp = DefaultHitExp
	}
	if cfg.MissExp <= 0 {
		cfg.MissExp = DefaultMissExp
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	return &cacheLogic{
		db:      db,
		cache:   engine,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
	}
}

type cacheLogic struct {
	db      repository.Repository
	cache   cacher.Engine
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

// GetByCode caches results that retrieved from database, including misses.
// A miss never replaces an entry already in the cache, so a lookup that
// started before a Create cannot hide the created row.
func (r *cacheLogic) GetByCode(ctx context.Context, code string) (*models.Mapping, error) {
	if entry, found := r.lookup(ctx, code); found {
		r.metrics.IncCacheLookup("hit")
		return fromEntry(entry)
	}
	r.metrics.IncCacheLookup("miss")

	// Concurrent misses for one code share a single database query. The query
	// is detached from the caller that started it; every caller still gives up
	// on its own context.
	ch := r.group.DoChan(code, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.QueryTimeout)
		defer cancel()

		// a flight that finished just before this one may have filled the cache
		if entry, found := r.lookup(qctx, code); found {
			return entry, nil
		}
		m, err := r.db.GetByCode(qctx, code)
		switch {
		case err == nil:
			entry := &cacher.Entry{Mapping: m}
			r.store(qctx, code, entry, r.cfg.HitExp)
			return entry, nil
		case errors.Is(err, repository.ErrRecordNotFound):
			return r.storeMiss(qctx, code), nil
		default:
			return nil, err
		}
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return fromEntry(res.Val.(*cacher.Entry))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create writes through. On a duplicate key the row that won is read back
// from the database and cached, replacing any miss recorded for the code.
func (r *cacheLogic) Create(ctx context.Context, m *models.Mapping) error {
	err := r.db.Create(ctx, m)
	switch {
	case err == nil:
		cp := *m
		r.store(ctx, m.ShortCode, &cacher.Entry{Mapping: &cp}, r.cfg.HitExp)
	case errors.Is(err, repository.ErrDuplicateKey):
		winner, gerr := r.db.GetByCode(ctx, m.ShortCode)
		if gerr == nil {
			r.store(ctx, m.ShortCode, &cacher.Entry{Mapping: winner}, r.cfg.HitExp)
			break
		}
		// the index that rejected the row was not the one on short_code
		if derr := r.cache.Delete(ctx, m.ShortCode); derr != nil {
			r.logger.Warn("cache delete failed", zap.String("code", m.ShortCode), zap.Error(derr))
		}
	}
	return err
}

// GetByURL just wraps the db.GetByURL().
func (r *cacheLogic) GetByURL(ctx context.Context, url string) (*models.Mapping, error) {
	return r.db.GetByURL(ctx, url)
}

// CodeExists just wraps the db.CodeExists().
func (r *cacheLogic) CodeExists(ctx context.Context, code string) (bool, error) {
	return r.db.CodeExists(ctx, code)
}

// Ping just wraps the db.Ping().
func (r *cacheLogic) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Unwrap returns the repository behind the cache.
func (r *cacheLogic) Unwrap() repository.Repository {
	return r.db
}

func (r *cacheLogic) lookup(ctx context.Context, code string) (*cacher.Entry, bool) {
	entry, found, err := r.cache.Get(ctx, code)
	if err != nil {
		// the database stays authoritative when the cache is down
		r.logger.Warn("cache get failed", zap.String("code", code), zap.Error(err))
		return nil, false
	}
	return entry, found
}

func (r *cacheLogic) store(ctx context.Context, code string, entry *cacher.Entry, exp time.Duration) {
	if err := r.cache.Set(ctx, code, entry, exp); err != nil {
		r.logger.Warn("cache set failed", zap.String("code", code), zap.Error(err))
	}
}

// storeMiss records a miss unless the key was filled meanwhile, in which case
// the newer entry is returned instead.
func (r *cacheLogic) storeMiss(ctx context.Context, code string) *cacher.Entry {
	miss := &cacher.Entry{}
	added, err := r.cache.Add(ctx, code, miss, r.cfg.MissExp)
	if err != nil {
		r.logger.Warn("cache add failed", zap.String("code", code), zap.Error(err))
		return miss
	}
	if !added {
		if entry, found := r.lookup(ctx, code); found {
			return entry
		}
	}
	return miss
}

func fromEntry(entry *cacher.Entry) (*models.Mapping, error) {
	if entry.Mapping == nil {
		return nil, repository.ErrRecordNotFound
	}
	m := *entry.Mapping
	return &m, nil
}
