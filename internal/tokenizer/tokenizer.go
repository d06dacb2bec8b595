package tokenizer

import (
	"strings"
	"sync"
	"unicode"
)

// Tokenizer maps words to unique prime numbers. The vocabulary only grows:
// a prime is never reassigned once allocated. All mutation goes through the
// internal mutex, so a single Tokenizer can be shared between the engine's
// ingest and search paths.
type Tokenizer struct {
	mu           sync.Mutex
	wordToPrime  map[string]uint64
	primeToWord  map[uint64]string
	currentPrime uint64
}

// NewTokenizer creates an empty vocabulary. The prime counter starts at 2,
// so the first word seen is assigned 3.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{
		wordToPrime:  make(map[string]uint64),
		primeToWord:  make(map[uint64]string),
		currentPrime: 2,
	}
}

// Tokenize splits text into lowercase word runs and returns the prime id
// sequence, allocating new primes for words seen for the first time.
func (t *Tokenizer) Tokenize(text string) []uint64 {
	words := splitWords(text)
	if len(words) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	primes := make([]uint64, 0, len(words))
	for _, word := range words {
		p, exists := t.wordToPrime[word]
		if !exists {
			p = t.nextPrime()
			t.wordToPrime[word] = p
			t.primeToWord[p] = word
		}
		primes = append(primes, p)
	}
	return primes
}

// TokenizeWithoutUpdate returns a copy of an already-known prime sequence
// without touching the vocabulary. Useful when the caller holds ids and
// must avoid the write path.
func (t *Tokenizer) TokenizeWithoutUpdate(primes []uint64) []uint64 {
	out := make([]uint64, len(primes))
	copy(out, primes)
	return out
}

// Prime returns the prime assigned to a word, if any.
func (t *Tokenizer) Prime(word string) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.wordToPrime[word]
	return p, ok
}

// Word returns the word a prime was assigned to, if any.
func (t *Tokenizer) Word(prime uint64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.primeToWord[prime]
	return w, ok
}

// VocabSize returns the number of distinct words seen so far.
func (t *Tokenizer) VocabSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.wordToPrime)
}

// nextPrime advances the counter to the next prime. Caller must hold mu.
func (t *Tokenizer) nextPrime() uint64 {
	for {
		if t.currentPrime == 2 {
			t.currentPrime++
		} else {
			t.currentPrime += 2
		}
		if isPrime(t.currentPrime) {
			return t.currentPrime
		}
	}
}

// isPrime tests primality by trial division.
func isPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// splitWords lowercases text and extracts alphanumeric (plus underscore)
// runs, mirroring a \b\w+\b word split.
func splitWords(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c) && c != '_'
	})
}
