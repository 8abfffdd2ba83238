package testfixtures

import (
	"fmt"
	"sync"
)

// TokenSequence yields predictable session ids and tokens for tests.
type TokenSequence struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewTokenSequence returns a sequence producing "<prefix>-1", "<prefix>-2", ...
// An empty prefix defaults to "token".
func NewTokenSequence(prefix string) *TokenSequence {
	if prefix == "" {
		prefix = "token"
	}
	return &TokenSequence{prefix: prefix}
}

// Next returns the next value in the sequence.
func (g *TokenSequence) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next in the shape the auth service expects.
func (g *TokenSequence) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many values have been produced.
func (g *TokenSequence) Issued() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
