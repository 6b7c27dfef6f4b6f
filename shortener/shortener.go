// Package shortener assigns short codes to URLs and resolves them back.
//
// Uniqueness of codes is guaranteed by the repository's unique indexes, not by
// any state held here: every existence check below is advisory and a rejected
// write is answered by re-reading or by trying another candidate.
package shortener

import (
	"context"
	"errors"
	"fmt"

	"goshortcode/idgenerator"
	"goshortcode/metrics"
	"goshortcode/models"
	"goshortcode/repository"

	"go.uber.org/zap"
)

// DefaultMaxAttempts is used when Config.MaxAttempts is not positive.
const DefaultMaxAttempts = 10

var (
	// ErrCodeConflict means the requested code already points to another URL.
	ErrCodeConflict = errors.New("short code is already in use by another URL")
	// ErrGenerationExhausted means no free code was found within MaxAttempts candidates.
	ErrGenerationExhausted = errors.New("could not generate a unique short code")
	// ErrNotFound is returned by Resolve for codes that were never assigned.
	ErrNotFound = errors.New("short code not found")
	// errVanished reports a row that rejected our write and then could not be read.
	errVanished = errors.New("conflicting mapping vanished")
)

// Outcome tells the caller what AssignCode did.
type Outcome int

const (
	Created Outcome = iota + 1
	ExistingReturned
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case ExistingReturned:
		return "existing"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

type Config struct {
	// CodeLength is the length of generated codes, idgenerator.DefaultLength when zero.
	CodeLength  int
	MaxAttempts int
}

// Store assigns codes to URLs and resolves them, using repository unique
// indexes as the only source of truth for uniqueness.
type Store struct {
	db      repository.Repository
	gen     idgenerator.Generator
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

func New(db repository.Repository, gen idgenerator.Generator, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Store {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = idgenerator.DefaultLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Store{
		db:      db,
		gen:     gen,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
	}
}

// AssignCode returns the mapping for originalURL, creating it when needed.
//
// requestedCode is nil when the caller did not ask for a code; a pointer to
// the empty string is treated the same way. Inputs must already be validated.
// The Conflict outcome always comes with ErrCodeConflict.
func (s *Store) AssignCode(ctx context.Context, originalURL string, requestedCode *string) (*models.Mapping, Outcome, error) {
	var (
		m       *models.Mapping
		outcome Outcome
		err     error
	)
	if requestedCode != nil && *requestedCode != "" {
		m, outcome, err = s.assignRequested(ctx, originalURL, *requestedCode)
	} else {
		m, outcome, err = s.assignGenerated(ctx, originalURL)
	}
	if err != nil && outcome != Conflict {
		s.metrics.IncAssignment("error")
		return nil, 0, err
	}
	s.metrics.IncAssignment(outcome.String())
	return m, outcome, err
}

func (s *Store) assignRequested(ctx context.Context, originalURL, code string) (*models.Mapping, Outcome, error) {
	existing, err := s.db.GetByCode(ctx, code)
	switch {
	case err == nil:
		s.metrics.IncCollision("requested")
		return sameURL(existing, originalURL)
	case !errors.Is(err, repository.ErrRecordNotFound):
		return nil, 0, fmt.Errorf("get by code: %w", err)
	}

	m := &models.Mapping{ShortCode: code, OriginalURL: originalURL}
	err = s.db.Create(ctx, m)
	if err == nil {
		return m, Created, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, 0, fmt.Errorf("create: %w", err)
	}

	// Another request took the code between the lookup and the insert. A
	// cache in front of the store may still answer with an older miss.
	s.metrics.IncCollision("race")
	winner, err := repository.Uncached(s.db).GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			err = errVanished
		}
		return nil, 0, fmt.Errorf("re-read code %q: %w", code, err)
	}
	s.logger.Debug("lost race for requested code",
		zap.String("code", code), zap.Bool("same_url", winner.OriginalURL == originalURL))
	return sameURL(winner, originalURL)
}

func (s *Store) assignGenerated(ctx context.Context, originalURL string) (*models.Mapping, Outcome, error) {
	existing, err := s.db.GetByURL(ctx, originalURL)
	switch {
	case err == nil:
		return existing, ExistingReturned, nil
	case !errors.Is(err, repository.ErrRecordNotFound):
		return nil, 0, fmt.Errorf("get by url: %w", err)
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		code := s.gen.Generate(s.cfg.CodeLength)

		exists, err := s.db.CodeExists(ctx, code)
		if err != nil {
			return nil, 0, fmt.Errorf("check code: %w", err)
		}
		if exists {
			s.metrics.IncCollision("exists")
			continue
		}

		m := &models.Mapping{ShortCode: code, OriginalURL: originalURL, Generated: true}
		err = s.db.Create(ctx, m)
		if err == nil {
			s.metrics.ObserveAttempts(attempt)
			return m, Created, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, 0, fmt.Errorf("create: %w", err)
		}

		// Either the candidate was taken meanwhile or a concurrent request
		// generated a code for the same URL first.
		s.metrics.IncCollision("race")
		winner, err := s.db.GetByURL(ctx, originalURL)
		switch {
		case err == nil:
			s.metrics.ObserveAttempts(attempt)
			return winner, ExistingReturned, nil
		case !errors.Is(err, repository.ErrRecordNotFound):
			return nil, 0, fmt.Errorf("get by url: %w", err)
		}
	}

	s.metrics.ObserveAttempts(s.cfg.MaxAttempts)
	s.logger.Error("code generation exhausted",
		zap.Int("attempts", s.cfg.MaxAttempts), zap.Int("length", s.cfg.CodeLength))
	return nil, 0, ErrGenerationExhausted
}

// Resolve returns the URL that code redirects to, or ErrNotFound.
func (s *Store) Resolve(ctx context.Context, code string) (string, error) {
	m, err := s.db.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			s.metrics.IncResolution("not_found")
			return "", ErrNotFound
		}
		s.metrics.IncResolution("error")
		return "", fmt.Errorf("get by code: %w", err)
	}
	s.metrics.IncResolution("found")
	return m.OriginalURL, nil
}

func sameURL(m *models.Mapping, originalURL string) (*models.Mapping, Outcome, error) {
	if m.OriginalURL == originalURL {
		return m, ExistingReturned, nil
	}
	return nil, Conflict, ErrCodeConflict
}
