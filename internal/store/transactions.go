package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fintrack/internal/core"
)

// TransactionStore keeps one JSON file per user under dir. Each file is
// a flat object of record ID to transaction. Mutations take a per-user
// lock so concurrent requests for the same user cannot interleave their
// read-modify-write cycles.
type TransactionStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTransactionStore(dir string) *TransactionStore {
	return &TransactionStore{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (s *TransactionStore) userLock(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	return l
}

func (s *TransactionStore) userPath(username string) string {
	return filepath.Join(s.dir, username+".json")
}

// Initialize creates an empty record file for a freshly registered
// user. An existing file is left untouched.
func (s *TransactionStore) Initialize(username string) error {
	if !validUsername(username) {
		return fmt.Errorf("%w: invalid username %q", core.ErrStorageUnavailable, username)
	}
	l := s.userLock(username)
	l.Lock()
	defer l.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	path := s.userPath(username)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFileAtomic(path, []byte("{}\n"))
}

// Load reads a user's full record store. A missing or corrupt file
// surfaces as ErrStorageUnavailable.
func (s *TransactionStore) Load(username string) (map[string]core.Transaction, error) {
	if !validUsername(username) {
		return nil, fmt.Errorf("%w: invalid username %q", core.ErrStorageUnavailable, username)
	}
	l := s.userLock(username)
	l.Lock()
	defer l.Unlock()
	return s.load(username)
}

func (s *TransactionStore) load(username string) (map[string]core.Transaction, error) {
	data, err := os.ReadFile(s.userPath(username))
	if err != nil {
		return nil, fmt.Errorf("%w: read records for %s: %v", core.ErrStorageUnavailable, username, err)
	}
	records := make(map[string]core.Transaction)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode records for %s: %v", core.ErrStorageUnavailable, username, err)
	}
	return records, nil
}

func (s *TransactionStore) save(username string, records map[string]core.Transaction) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records for %s: %w", username, err)
	}
	return writeFileAtomic(s.userPath(username), append(data, '\n'))
}

// Put writes a record under id, replacing any record already stored
// there.
func (s *TransactionStore) Put(username, id string, record core.Transaction) error {
	if !validUsername(username) {
		return fmt.Errorf("%w: invalid username %q", core.ErrStorageUnavailable, username)
	}
	l := s.userLock(username)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(username)
	if err != nil {
		return err
	}
	records[id] = record
	return s.save(username, records)
}

// Delete removes the record under id. Deleting an absent id is a no-op.
func (s *TransactionStore) Delete(username, id string) error {
	if !validUsername(username) {
		return fmt.Errorf("%w: invalid username %q", core.ErrStorageUnavailable, username)
	}
	l := s.userLock(username)
	l.Lock()
	defer l.Unlock()

	records, err := s.load(username)
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return nil
	}
	delete(records, id)
	return s.save(username, records)
}
