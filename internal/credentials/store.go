// Package credentials keeps each chat user's API token in memory.
package credentials

import (
	"strings"
	"sync"
)

// ValidateShape reports whether token looks like a JWT: exactly three
// dot-separated segments. Signature and claims are not checked.
func ValidateShape(token string) bool {
	return len(strings.Split(token, ".")) == 3
}

// Store maps a user key to its last submitted token. Nothing is persisted.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewStore() *Store {
	return &Store{tokens: make(map[string]string)}
}

// Set replaces any previous token for user.
func (s *Store) Set(user, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[user] = token
}

func (s *Store) Get(user string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[user]
	return token, ok && token != ""
}

func (s *Store) Delete(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, user)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// UserKey namespaces a platform user id.
func UserKey(platform, userID string) string {
	return platform + ":" + userID
}
