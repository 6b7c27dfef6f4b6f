package shortener

import (
	"context"
	"errors"
	"testing"

	"goshortcode/models"
	"goshortcode/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedRepo answers lookups from queues so each step of a lost race can be
// replayed deterministically.
type scriptedRepo struct {
	repository.UnimplementedRepository
	byCode     []lookup
	byURL      []lookup
	exists     []bool
	createErrs []error
	created    []models.Mapping
}

type lookup struct {
	m   *models.Mapping
	err error
}

func (r *scriptedRepo) GetByCode(ctx context.Context, code string) (*models.Mapping, error) {
	next := r.byCode[0]
	r.byCode = r.byCode[1:]
	return next.m, next.err
}

func (r *scriptedRepo) GetByURL(ctx context.Context, url string) (*models.Mapping, error) {
	next := r.byURL[0]
	r.byURL = r.byURL[1:]
	return next.m, next.err
}

func (r *scriptedRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	if len(r.exists) == 0 {
		return false, nil
	}
	next := r.exists[0]
	r.exists = r.exists[1:]
	return next, nil
}

func (r *scriptedRepo) Create(ctx context.Context, m *models.Mapping) error {
	r.created = append(r.created, *m)
	if len(r.createErrs) == 0 {
		return nil
	}
	err := r.createErrs[0]
	r.createErrs = r.createErrs[1:]
	return err
}

// sequenceGenerator hands out codes in order.
type sequenceGenerator struct {
	codes   []string
	lengths []int
}

func (g *sequenceGenerator) Generate(length int) string {
	g.lengths = append(g.lengths, length)
	code := g.codes[0]
	g.codes = g.codes[1:]
	return code
}

var notFound = lookup{err: repository.ErrRecordNotFound}

func newScriptedStore(repo *scriptedRepo, gen *sequenceGenerator) *Store {
	return New(repo, gen, zap.NewNop(), nil, Config{})
}

func TestAssignCode_requested_code_lost_race(t *testing.T) {
	tests := []struct {
		name        string
		winnerURL   string
		wantOutcome Outcome
		wantErr     error
	}{
		{"winner has same url", "https://a.com", ExistingReturned, nil},
		{"winner has other url", "https://b.com", Conflict, ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := &models.Mapping{ID: 9, ShortCode: "abc123", OriginalURL: tt.winnerURL}
			repo := &scriptedRepo{
				byCode:     []lookup{notFound, {m: winner}},
				createErrs: []error{repository.ErrDuplicateKey},
			}
			store := newScriptedStore(repo, nil)

			m, outcome, err := store.AssignCode(context.Background(), "https://a.com", strPtr("abc123"))
			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
			} else {
				require.NoError(t, err)
				assert.Equal(t, winner.ID, m.ID)
			}
			assert.Len(t, repo.created, 1)
		})
	}
}

// staleView answers every lookup by code with a miss, like a cache that
// recorded the miss before the winning row was committed.
type staleView struct {
	*scriptedRepo
}

func (v staleView) GetByCode(ctx context.Context, code string) (*models.Mapping, error) {
	return nil, repository.ErrRecordNotFound
}

func (v staleView) Unwrap() repository.Repository { return v.scriptedRepo }

func TestAssignCode_lost_race_reads_past_stale_cache(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantOutcome Outcome
		wantErr     error
	}{
		{"same url", "https://a.com", ExistingReturned, nil},
		{"other url", "https://b.com", Conflict, ErrCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := &models.Mapping{ID: 9, ShortCode: "abc123", OriginalURL: "https://a.com"}
			repo := &scriptedRepo{
				byCode:     []lookup{{m: winner}},
				createErrs: []error{repository.ErrDuplicateKey},
			}
			store := New(staleView{repo}, nil, zap.NewNop(), nil, Config{})

			m, outcome, err := store.AssignCode(context.Background(), tt.url, strPtr("abc123"))
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.NotErrorIs(t, err, errVanished)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, winner.ID, m.ID)
			}
			assert.Empty(t, repo.byCode, "winner read from the uncached repository")
		})
	}
}

func TestAssignCode_requested_code_winner_vanished(t *testing.T) {
	repo := &scriptedRepo{
		byCode:     []lookup{notFound, notFound},
		createErrs: []error{repository.ErrDuplicateKey},
	}
	store := newScriptedStore(repo, nil)

	_, _, err := store.AssignCode(context.Background(), "https://a.com", strPtr("abc123"))
	assert.ErrorIs(t, err, errVanished)
	assert.NotErrorIs(t, err, ErrCodeConflict)
}

func TestAssignCode_storage_errors_are_surfaced(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("lookup by code", func(t *testing.T) {
		store := newScriptedStore(&scriptedRepo{byCode: []lookup{{err: boom}}}, nil)
		_, _, err := store.AssignCode(context.Background(), "https://a.com", strPtr("abc123"))
		assert.ErrorIs(t, err, boom)
	})
	t.Run("create", func(t *testing.T) {
		repo := &scriptedRepo{byURL: []lookup{notFound}, createErrs: []error{boom}}
		store := newScriptedStore(repo, &sequenceGenerator{codes: []string{"Qw3rty"}})
		_, _, err := store.AssignCode(context.Background(), "https://a.com", nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestAssignCode_generated_retries_on_collision(t *testing.T) {
	repo := &scriptedRepo{
		byURL:      []lookup{notFound, notFound},
		exists:     []bool{true, false, false},
		createErrs: []error{repository.ErrDuplicateKey, nil},
	}
	gen := &sequenceGenerator{codes: []string{"taken1", "raced1", "free01"}}
	store := newScriptedStore(repo, gen)

	m, outcome, err := store.AssignCode(context.Background(), "https://a.com", nil)
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, "free01", m.ShortCode)
	assert.True(t, m.Generated)
	assert.Equal(t, []int{6, 6, 6}, gen.lengths)
	require.Len(t, repo.created, 2)
	assert.Equal(t, "raced1", repo.created[0].ShortCode)
}

func TestAssignCode_generated_lost_race_for_same_url(t *testing.T) {
	winner := &models.Mapping{ID: 4, ShortCode: "W1nner", OriginalURL: "https://a.com", Generated: true}
	repo := &scriptedRepo{
		byURL:      []lookup{notFound, {m: winner}},
		createErrs: []error{repository.ErrDuplicateKey},
	}
	store := newScriptedStore(repo, &sequenceGenerator{codes: []string{"L0ser1"}})

	m, outcome, err := store.AssignCode(context.Background(), "https://a.com", nil)
	require.NoError(t, err)
	assert.Equal(t, ExistingReturned, outcome)
	assert.Equal(t, "W1nner", m.ShortCode)
}

func TestAssignCode_generation_exhausted(t *testing.T) {
	repo := &scriptedRepo{
		byURL:  []lookup{notFound},
		exists: []bool{true, true, true},
	}
	gen := &sequenceGenerator{codes: []string{"aaa", "bbb", "ccc"}}
	store := New(repo, gen, zap.NewNop(), nil, Config{CodeLength: 3, MaxAttempts: 3})

	m, outcome, err := store.AssignCode(context.Background(), "https://a.com", nil)
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	assert.Nil(t, m)
	assert.Zero(t, outcome)
	assert.Empty(t, repo.created)
	assert.Equal(t, []int{3, 3, 3}, gen.lengths)
}

func TestAssignCode_empty_code_means_generate(t *testing.T) {
	repo := &scriptedRepo{byURL: []lookup{notFound}}
	store := newScriptedStore(repo, &sequenceGenerator{codes: []string{"Gen123"}})

	m, outcome, err := store.AssignCode(context.Background(), "https://a.com", strPtr(""))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.Equal(t, "Gen123", m.ShortCode)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "existing", ExistingReturned.String())
	assert.Equal(t, "conflict", Conflict.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
