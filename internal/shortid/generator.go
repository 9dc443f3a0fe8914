// Package shortid produces and validates the public tokens used in redirect
// paths.
package shortid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"shortwave/internal/domain"
	"shortwave/pkg/validator"
)

// Alphabet is URL-safe without escaping. 62^7 is about 3.5e12 ids, so a
// single insert against the store's unique index almost always succeeds.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultLength      = 7
	DefaultMaxAttempts = 5
)

// largest multiple of len(Alphabet) that fits in a byte; bytes above it are
// discarded so every character is equally likely.
const maxUnbiased = 256 - (256 % len(Alphabet))

// Generator draws random short ids. It holds no state besides its settings
// and is safe for concurrent use.
type Generator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

// Option customises a Generator.
type Option func(*Generator)

// WithRandom replaces crypto/rand, mainly for deterministic tests.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// New creates a generator. Non-positive arguments fall back to the defaults.
func New(length, maxAttempts int, opts ...Option) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	g := &Generator{
		length:      length,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxAttempts is how many fresh ids a caller should try before giving up
// with domain.ErrGenerationExhausted.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate returns a new random id. Uniqueness is not checked here: the
// caller inserts it and retries on domain.ErrDuplicateShortID.
func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(out) < g.length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}

	return string(out), nil
}

// ValidateAlias normalises a user-chosen alias and checks it against the
// alias policy. Whether it is free is decided by the store on insert.
func (g *Generator) ValidateAlias(candidate string) (string, error) {
	alias := strings.TrimSpace(candidate)
	if err := validator.ValidateAlias(alias); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidAlias, err)
	}
	return alias, nil
}
