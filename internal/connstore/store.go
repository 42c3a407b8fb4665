/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package connstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"dbchat/internal/crypto"
	"dbchat/internal/database"
)

// Profile represents a stored database connection under a name.
// The password is kept AES-256-GCM encrypted; everything else is plain.
type Profile struct {
	Name              string    `yaml:"name"`
	Engine            string    `yaml:"engine"`
	Path              string    `yaml:"path,omitempty"`
	Host              string    `yaml:"host,omitempty"`
	Port              int       `yaml:"port,omitempty"`
	Database          string    `yaml:"database,omitempty"`
	User              string    `yaml:"user,omitempty"`
	SSLMode           string    `yaml:"sslmode,omitempty"`
	EncryptedPassword string    `yaml:"encrypted_password,omitempty"`
	Description       string    `yaml:"description,omitempty"`
	CreatedAt         time.Time `yaml:"created_at"`
	LastUsedAt        time.Time `yaml:"last_used_at,omitempty"`
}

type storeFile struct {
	Profiles map[string]*Profile `yaml:"connections"`
}

// Store manages named connection profiles persisted to a YAML file.
type Store struct {
	mu       sync.Mutex
	path     string
	key      *crypto.EncryptionKey
	profiles map[string]*Profile
}

// Open loads the profile store at path, creating an empty one if the
// file does not exist. The key protects stored passwords.
func Open(path string, key *crypto.EncryptionKey) (*Store, error) {
	s := &Store{
		path:     path,
		key:      key,
		profiles: make(map[string]*Profile),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}

	var file storeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse connections file: %w", err)
	}
	if file.Profiles != nil {
		s.profiles = file.Profiles
	}
	return s, nil
}

// Add stores a new profile. The password in params is encrypted before
// it is kept.
func (s *Store) Add(name string, t database.Type, p database.Params, description string) error {
	if name == "" {
		return fmt.Errorf("connection name cannot be empty")
	}
	if !t.Valid() {
		return fmt.Errorf("unknown engine %q", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[name]; exists {
		return fmt.Errorf("connection '%s' already exists", name)
	}

	encrypted, err := s.key.Encrypt(p.Password)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	s.profiles[name] = &Profile{
		Name:              name,
		Engine:            string(t),
		Path:              p.Path,
		Host:              p.Host,
		Port:              p.Port,
		Database:          p.Database,
		User:              p.User,
		SSLMode:           p.SSLMode,
		EncryptedPassword: encrypted,
		Description:       description,
		CreatedAt:         time.Now(),
	}

	return s.save()
}

// Remove deletes a profile by name.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[name]; !exists {
		return fmt.Errorf("connection '%s' not found", name)
	}
	delete(s.profiles, name)
	return s.save()
}

// Resolve returns the engine and connection parameters for a profile,
// with the password decrypted, and records the use.
func (s *Store) Resolve(name string) (database.Type, database.Params, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[name]
	if !exists {
		return "", database.Params{}, fmt.Errorf("connection '%s' not found", name)
	}

	password, err := s.key.Decrypt(profile.EncryptedPassword)
	if err != nil {
		return "", database.Params{}, fmt.Errorf("failed to decrypt password for '%s': %w", name, err)
	}

	profile.LastUsedAt = time.Now()
	if err := s.save(); err != nil {
		return "", database.Params{}, err
	}

	return database.Type(profile.Engine), database.Params{
		Path:     profile.Path,
		Host:     profile.Host,
		Port:     profile.Port,
		Database: profile.Database,
		User:     profile.User,
		Password: password,
		SSLMode:  profile.SSLMode,
	}, nil
}

// List returns all profiles sorted by name. Passwords stay encrypted.
func (s *Store) List() []*Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles
}

// Count returns the number of stored profiles.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

// save writes the store to disk. Caller holds the lock.
func (s *Store) save() error {
	data, err := yaml.Marshal(&storeFile{Profiles: s.profiles})
	if err != nil {
		return fmt.Errorf("failed to marshal connections: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Passwords are encrypted but the file is still private
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write connections file: %w", err)
	}

	return nil
}
