package idgenerator

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"sync"

	"github.com/jxskiss/base62"
)

const (
	DefaultLength = 6
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// 62^10 is the largest power of the base that fits in an int64.
	maxChunk = 10
)

type empty struct{}

var (
	encoder     = base62.NewEncoding(Alphabet)
	validChars  = make(map[rune]empty, len(Alphabet))
	chunkBounds [maxChunk + 1]int64
)

func init() {
	for _, c := range Alphabet {
		validChars[c] = empty{}
	}
	chunkBounds[0] = 1
	for i := 1; i <= maxChunk; i++ {
		chunkBounds[i] = chunkBounds[i-1] * int64(len(Alphabet))
	}
}

// InAlphabet reports whether every character of id belongs to Alphabet.
func InAlphabet(id string) bool {
	for _, r := range id {
		if _, ok := validChars[r]; !ok {
			return false
		}
	}
	return true
}

// Source supplies uniformly distributed integers in [0, n).
type Source interface {
	Int63n(n int64) int64
}

type Generator interface {
	// Generate returns a random code of exactly length characters; a
	// non-positive length means DefaultLength.
	Generate(length int) string
}

// New returns a Generator drawing from src, or from crypto/rand when src is nil.
func New(src Source) Generator {
	if src == nil {
		src = cryptoSource{}
	}
	return &generator{src: src}
}

type generator struct {
	src Source
}

func (g *generator) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, 0, length)
	for remaining := length; remaining > 0; {
		n := remaining
		if n > maxChunk {
			n = maxChunk
		}
		// a uniform integer below 62^n written in base 62 gives n
		// independent uniform characters
		digits := encoder.FormatUint(uint64(g.src.Int63n(chunkBounds[n])))
		for pad := n - len(digits); pad > 0; pad-- {
			buf = append(buf, Alphabet[0])
		}
		buf = append(buf, digits...)
		remaining -= n
	}
	return string(buf)
}

type cryptoSource struct{}

func (cryptoSource) Int63n(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		panic("idgenerator: crypto/rand unavailable: " + err.Error())
	}
	return v.Int64()
}

// NewSeededSource returns a deterministic Source that is safe for concurrent use.
func NewSeededSource(seed int64) Source {
	return &lockedSource{rnd: mrand.New(mrand.NewSource(seed))}
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

func (l *lockedSource) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Int63n(n)
}
