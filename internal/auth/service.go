package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrInvalidToken       = errors.New("invalid token")
)

type Service struct {
	users        UserStore
	bcryptCost   int
	ttl          time.Duration
	nowFunc      func() time.Time
	stateFile    string
	sessionStore SessionStore

	sessMu   sync.RWMutex
	sessions map[string]Session
}

type ServiceConfig struct {
	BcryptCost       int
	SessionTTL       time.Duration
	SessionStateFile string
	SessionStore     SessionStore
}

func NewService(userStore UserStore, cfg ServiceConfig) (*Service, error) {
	if userStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be > 0")
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost out of range")
	}

	return &Service{
		users:        userStore,
		bcryptCost:   cost,
		ttl:          cfg.SessionTTL,
		nowFunc:      time.Now,
		stateFile:    cfg.SessionStateFile,
		sessionStore: cfg.SessionStore,
		sessions:     make(map[string]Session),
	}, nil
}

func (s *Service) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *Service) CheckPassword(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// Register creates a new account. Duplicate detection is left to the store's
// Create so that the check and the insert are one atomic step.
func (s *Service) Register(username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return User{}, fmt.Errorf("username, email, and password are required")
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login verifies the credentials and opens a session holding the user's
// email. Unknown email and wrong password stay distinct errors; the handlers
// show different notices for them.
func (s *Service) Login(email, password string) (Session, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if !s.CheckPassword(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	token, err := generateToken(32)
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}

	now := s.nowFunc()
	session := Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserEmail: u.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.sessMu.Lock()
	s.sessions[token] = session
	if err := s.persistSessionsLocked(); err != nil {
		delete(s.sessions, token)
		s.sessMu.Unlock()
		return Session{}, err
	}
	s.sessMu.Unlock()

	return session, nil
}

func (s *Service) ValidateToken(token string) (Session, error) {
	s.sessMu.RLock()
	session, ok := s.sessions[token]
	s.sessMu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidToken
	}

	if s.nowFunc().After(session.ExpiresAt) {
		s.sessMu.Lock()
		delete(s.sessions, token)
		_ = s.persistSessionsLocked()
		s.sessMu.Unlock()
		return Session{}, ErrInvalidToken
	}

	return session, nil
}

func (s *Service) Logout(token string) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return ErrInvalidToken
	}
	delete(s.sessions, token)
	if err := s.persistSessionsLocked(); err != nil {
		return err
	}
	return nil
}

func (s *Service) LoadSessionState() error {
	if s.sessionStore != nil {
		state, err := s.sessionStore.Load()
		if err != nil {
			return fmt.Errorf("load session state: %w", err)
		}
		s.sessMu.Lock()
		s.sessions = state
		s.sessMu.Unlock()
		return nil
	}

	if s.stateFile == "" {
		return nil
	}
	b, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session state: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	state := make(map[string]Session)
	if err := json.Unmarshal(b, &state); err != nil {
		return fmt.Errorf("decode session state: %w", err)
	}

	s.sessMu.Lock()
	s.sessions = state
	s.sessMu.Unlock()
	return nil
}

func (s *Service) persistSessionsLocked() error {
	if s.sessionStore != nil {
		if err := s.sessionStore.Save(s.sessions); err != nil {
			return fmt.Errorf("save session state: %w", err)
		}
		return nil
	}

	if s.stateFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.stateFile), 0o755); err != nil {
		return fmt.Errorf("mkdir session state dir: %w", err)
	}
	b, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := os.WriteFile(s.stateFile, b, 0o644); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}

func generateToken(n int) (string, error) {
	if n < 16 {
		return "", fmt.Errorf("token length too short")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
