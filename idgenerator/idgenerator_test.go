package idgenerator

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedSource always answers with the value picked by pick.
type fixedSource struct {
	pick func(n int64) int64
}

func (f fixedSource) Int63n(n int64) int64 { return f.pick(n) }

func TestGenerate_length_and_alphabet(t *testing.T) {
	gen := New(nil)

	tests := []struct {
		name     string
		length   int
		expected int
	}{
		{"default when zero", 0, DefaultLength},
		{"default when negative", -3, DefaultLength},
		{"single char", 1, 1},
		{"minimum custom code", 3, 3},
		{"default", 6, 6},
		{"exactly one chunk", 10, 10},
		{"crosses chunk boundary", 11, 11},
		{"maximum custom code", 15, 15},
		{"long", 64, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				code := gen.Generate(tt.length)
				assert.Len(t, code, tt.expected)
				assert.Regexp(t, "^[a-zA-Z0-9]+$", code)
				assert.True(t, InAlphabet(code))
			}
		})
	}
}

func TestGenerate_pads_small_draws(t *testing.T) {
	gen := New(fixedSource{pick: func(n int64) int64 { return 0 }})
	assert.Equal(t, "AAAAAA", gen.Generate(6))
	assert.Equal(t, strings.Repeat("A", 15), gen.Generate(15))
}

func TestGenerate_largest_draw(t *testing.T) {
	gen := New(fixedSource{pick: func(n int64) int64 { return n - 1 }})
	assert.Equal(t, "999999", gen.Generate(6))
	assert.Equal(t, strings.Repeat("9", 12), gen.Generate(12))
}

func TestGenerate_seeded_source_is_deterministic(t *testing.T) {
	a := New(NewSeededSource(42))
	b := New(NewSeededSource(42))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(6), b.Generate(6))
	}
}

func TestGenerate_uniqueness(t *testing.T) {
	gen := New(nil)
	codes := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		code := gen.Generate(DefaultLength)
		assert.False(t, codes[code], "duplicate code generated: %s", code)
		codes[code] = true
	}
}

func TestGenerate_concurrent(t *testing.T) {
	gen := New(NewSeededSource(1))
	numG := 1000
	var wg sync.WaitGroup
	wg.Add(numG)
	for i := 0; i < numG; i++ {
		go func() {
			defer wg.Done()
			assert.Len(t, gen.Generate(DefaultLength), DefaultLength)
		}()
	}
	wg.Wait()
}

func TestInAlphabet(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"letters and digits", "aZ09", true},
		{"empty", "", true},
		{"dash", "ab-c", false},
		{"percent", "%aaaaa", false},
		{"non ascii letter", "abcé", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InAlphabet(tt.id))
		})
	}
}
