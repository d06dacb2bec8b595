package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonant-engine/backend/internal/tokenizer"
)

func TestTokenizeAssignsPrimes(t *testing.T) {
	tk := tokenizer.NewTokenizer()

	primes := tk.Tokenize("Hello, World! Hello again.")
	require.Len(t, primes, 4)

	// Counter starts at 2, so allocation order is 3, 5, 7, ...
	assert.Equal(t, uint64(3), primes[0])
	assert.Equal(t, uint64(5), primes[1])
	assert.Equal(t, primes[0], primes[2], "repeated word must reuse its prime")
	assert.Equal(t, uint64(7), primes[3])
}

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tk := tokenizer.NewTokenizer()

	a := tk.Tokenize("GoLang")
	b := tk.Tokenize("golang")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0], b[0])

	mixed := tk.Tokenize("snake_case and c3po")
	assert.Len(t, mixed, 3)
}

func TestTokenizeEmpty(t *testing.T) {
	tk := tokenizer.NewTokenizer()
	assert.Empty(t, tk.Tokenize(""))
	assert.Empty(t, tk.Tokenize("!!! ... ---"))
	assert.Equal(t, 0, tk.VocabSize())
}

func TestVocabularyIsStable(t *testing.T) {
	tk := tokenizer.NewTokenizer()
	first := tk.Tokenize("alpha beta gamma")

	// Interleave new words; old assignments must not move.
	tk.Tokenize("delta epsilon")
	second := tk.Tokenize("alpha beta gamma")
	assert.Equal(t, first, second)

	p, ok := tk.Prime("alpha")
	require.True(t, ok)
	w, ok := tk.Word(p)
	require.True(t, ok)
	assert.Equal(t, "alpha", w)
	assert.Equal(t, 5, tk.VocabSize())
}

func TestTokenizeWithoutUpdate(t *testing.T) {
	tk := tokenizer.NewTokenizer()
	primes := tk.Tokenize("one two three")
	size := tk.VocabSize()

	out := tk.TokenizeWithoutUpdate(primes)
	assert.Equal(t, primes, out)
	assert.Equal(t, size, tk.VocabSize(), "pass-through must not grow the vocabulary")

	// Must be a copy, not an alias.
	out[0] = 999983
	assert.NotEqual(t, out[0], primes[0])
}
