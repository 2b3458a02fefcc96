package board

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

const tokenPrefix = "ess_"

// TokenSet is the mutable set of bearer tokens the status API accepts.
// Seeded from config at startup, extendable at runtime via the mint endpoint.
type TokenSet struct {
	mu     sync.RWMutex
	tokens map[string]bool
}

func NewTokenSet(tokens []string) *TokenSet {
	set := &TokenSet{tokens: make(map[string]bool)}
	for _, t := range tokens {
		if t != "" {
			set.tokens[t] = true
		}
	}
	return set
}

// Mint generates a fresh token, adds it to the set, and returns it.
func (s *TokenSet) Mint() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := tokenPrefix + base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()
	return token, nil
}

// Valid reports whether token is in the set. The empty string never is.
func (s *TokenSet) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[token]
}

// Empty reports whether the set holds no tokens at all.
func (s *TokenSet) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens) == 0
}
