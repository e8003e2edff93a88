package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type FileUserStore struct {
	path string

	mu    sync.RWMutex
	users map[string]User
}

func NewFileUserStore(path string) (*FileUserStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("user state file path is required")
	}

	s := &FileUserStore{
		path:  path,
		users: make(map[string]User),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileUserStore) GetByEmail(email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *FileUserStore) Create(user User) error {
	key := normalizeEmail(user.Email)
	if key == "" {
		return fmt.Errorf("email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; ok {
		return ErrEmailTaken
	}
	s.users[key] = user
	if err := s.persistLocked(); err != nil {
		delete(s.users, key)
		return err
	}
	return nil
}

// storedUser is the on-disk shape. User hides the password hash from JSON
// responses, so the state file needs its own record that keeps it.
type storedUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

func (s *FileUserStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read user store file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}

	var decoded []storedUser
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode user store file: %w", err)
	}
	for _, u := range decoded {
		key := normalizeEmail(u.Email)
		if key == "" {
			continue
		}
		s.users[key] = User{ID: u.ID, Username: u.Username, Email: u.Email, PasswordHash: u.PasswordHash}
	}
	return nil
}

func (s *FileUserStore) persistLocked() error {
	out := make([]storedUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, storedUser{ID: u.ID, Username: u.Username, Email: u.Email, PasswordHash: u.PasswordHash})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode user store file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir user store dir: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write user store file: %w", err)
	}
	return nil
}
