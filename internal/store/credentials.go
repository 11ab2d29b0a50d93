package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

const bcryptCost = 12

// CredentialStore is the shared account file, a JSON object keyed by
// username. All access is serialized behind one mutex; the file is
// small and contended writes are rare.
type CredentialStore struct {
	mu   sync.Mutex
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// Ensure creates an empty credential file (and its directory) when none
// exists yet, so a fresh deployment starts without manual setup.
func (s *CredentialStore) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat credential store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	return writeFileAtomic(s.path, []byte("{}\n"))
}

// Load reads every account. A missing or unreadable file surfaces as
// ErrStorageUnavailable so callers treat it like any other outage.
func (s *CredentialStore) Load() (map[string]core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *CredentialStore) load() (map[string]core.Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrStorageUnavailable, filepath.Base(s.path), err)
	}
	accounts := make(map[string]core.Credential)
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", core.ErrStorageUnavailable, filepath.Base(s.path), err)
	}
	for username, c := range accounts {
		c.Username = username
		accounts[username] = c
	}
	return accounts, nil
}

func (s *CredentialStore) save(accounts map[string]core.Credential) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'))
}

// Verify checks a username/password pair against the stored bcrypt
// hash. Unknown usernames and wrong passwords both return
// ErrInvalidCredentials; callers cannot tell them apart.
func (s *CredentialStore) Verify(username, password string) error {
	accounts, err := s.Load()
	if err != nil {
		return err
	}
	account, ok := accounts[username]
	if !ok {
		return core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return core.ErrInvalidCredentials
	}
	return nil
}

// Create registers a new account. The username must be unique and so
// must the email address; the password is stored as a bcrypt hash.
func (s *CredentialStore) Create(username, password string, profile core.Credential) error {
	if !validUsername(username) {
		return fmt.Errorf("%w: invalid username %q", core.ErrStorageUnavailable, username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := accounts[username]; ok {
		return core.ErrUsernameTaken
	}
	email := strings.TrimSpace(profile.Email)
	for _, c := range accounts {
		if email != "" && strings.EqualFold(c.Email, email) {
			return core.ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	accounts[username] = core.Credential{
		PasswordHash: string(hash),
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Email:        email,
	}
	return s.save(accounts)
}
