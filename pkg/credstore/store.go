// Package credstore persists each chat's Vikunja credentials so logins
// survive bot restarts. The whole store is one JSON document rewritten
// atomically on every mutation; at the expected scale (tens of users)
// an incremental format is not worth the complexity.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// ErrCorrupt means the credentials file exists but is not valid JSON.
// A missing file is not an error; the store just starts empty.
var ErrCorrupt = errors.New("credentials file corrupt")

// Credential holds one chat's Vikunja login. The cached JWT rides along
// as an oauth2.Token so expiry checks reuse Token.Valid.
type Credential struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Token    *oauth2.Token `json:"token,omitempty"`
}

// Store is the on-disk credential map keyed by chat identity. All
// methods are safe for concurrent use.
type Store struct {
	path  string
	mu    sync.Mutex
	creds map[string]Credential
}

// Open loads the store at path. An absent file yields an empty store;
// an unreadable or unparseable file yields ErrCorrupt.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		creds: make(map[string]Credential),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

// Get returns the credential for a chat identity, if one is stored.
func (s *Store) Get(chatID string) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[chatID]
	return cred, ok
}

// Save upserts a chat's credential and persists the whole store.
// Re-login overwrites; there is never more than one entry per chat.
func (s *Store) Save(chatID string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[chatID] = cred
	return s.persist()
}

// Delete removes a chat's credential if present and persists. Deleting
// an absent entry is a no-op.
func (s *Store) Delete(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[chatID]; !ok {
		return nil
	}
	delete(s.creds, chatID)
	return s.persist()
}

// persist rewrites the file via a temp file and rename so a crash can
// never leave a half-written document behind. Caller holds s.mu.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict credentials file permissions: %w", err)
	}

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.creds); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp credentials file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}
