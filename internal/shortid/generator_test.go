package shortid

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"shortwave/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	g := New(0, 0)

	for i := 0; i < 200; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, id, DefaultLength)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected character %q in %q", c, id)
		}
	}
}

func TestGenerate_CustomLength(t *testing.T) {
	g := New(12, 3)

	id, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, id, 12)
	assert.Equal(t, 3, g.MaxAttempts())
}

func TestGenerate_RarelyRepeats(t *testing.T) {
	g := New(DefaultLength, DefaultMaxAttempts)
	seen := make(map[string]bool)

	for i := 0; i < 10000; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGenerate_SkipsBiasedBytes(t *testing.T) {
	// 255 is above the unbiased range and is discarded; 0 maps to 'a', 63 and 1 to 'b'.
	src := bytes.NewReader([]byte{255, 0, 255, 63, 255, 255, 1, 2, 3, 4, 5, 6})
	g := New(3, 1, WithRandom(src))

	id, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "abb", id)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestGenerate_RandomFailure(t *testing.T) {
	g := New(7, 1, WithRandom(failingReader{}))

	_, err := g.Generate()
	assert.ErrorContains(t, err, "entropy unavailable")
}

func TestValidateAlias(t *testing.T) {
	g := New(0, 0)

	alias, err := g.ValidateAlias("  promo ")
	require.NoError(t, err)
	assert.Equal(t, "promo", alias)

	for _, bad := range []string{"", "ab", "has space", "links", "x/y"} {
		_, err := g.ValidateAlias(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidAlias, "alias %q", bad)
	}
}
