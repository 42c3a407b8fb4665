/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package creds

import "sync"

// Store holds provider API credentials for one session. Secrets live only
// in memory: nothing here ever touches disk, and Clear wipes the map on
// disconnect or shutdown.
type Store struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{secrets: make(map[string]string)}
}

// Set stores or replaces the credential for a provider. Setting an empty
// secret removes the provider.
func (s *Store) Set(provider, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if secret == "" {
		delete(s.secrets, provider)
		return
	}
	s.secrets[provider] = secret
}

// Get returns the credential for a provider, if present.
func (s *Store) Get(provider string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[provider]
	return secret, ok
}

// Providers returns the names of providers with a credential set.
func (s *Store) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.secrets))
	for name := range s.secrets {
		names = append(names, name)
	}
	return names
}

// Clear removes every credential.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.secrets {
		delete(s.secrets, k)
	}
}
