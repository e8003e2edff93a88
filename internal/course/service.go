package course

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidInput = errors.New("invalid course registration input")

// Service stores registrations in memory, optionally mirrored to a JSON
// state file. Duplicate (studentID, courseID) pairs are allowed; every
// submission is its own record.
type Service struct {
	nowFunc   func() time.Time
	stateFile string

	mu      sync.RWMutex
	records []Registration
}

func NewService() *Service {
	return &Service{
		nowFunc: time.Now,
		records: make([]Registration, 0),
	}
}

func NewServiceWithFile(stateFile string) (*Service, error) {
	s := &Service{
		nowFunc:   time.Now,
		stateFile: strings.TrimSpace(stateFile),
		records:   make([]Registration, 0),
	}
	if s.stateFile == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := s.loadState(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) Create(reg Registration) (Registration, error) {
	if err := validate(reg); err != nil {
		return Registration{}, err
	}

	reg.ID = uuid.NewString()
	reg.StudentName = strings.TrimSpace(reg.StudentName)
	reg.StudentID = strings.TrimSpace(reg.StudentID)
	reg.CourseName = strings.TrimSpace(reg.CourseName)
	reg.CourseID = strings.TrimSpace(reg.CourseID)
	reg.CreatedAt = s.nowFunc().UTC()

	s.mu.Lock()
	s.records = append(s.records, reg)
	if err := s.persistLocked(); err != nil {
		s.records = s.records[:len(s.records)-1]
		s.mu.Unlock()
		return Registration{}, err
	}
	s.mu.Unlock()

	return reg, nil
}

func (s *Service) ListByEmail(email string) ([]Registration, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	out := make([]Registration, 0)
	for _, r := range s.records {
		if strings.ToLower(r.Email) == email && email != "" {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) loadState() error {
	b, err := os.ReadFile(s.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read course state: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	var decoded []Registration
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("decode course state: %w", err)
	}
	for _, r := range decoded {
		if r.ID == "" {
			continue
		}
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Service) persistLocked() error {
	if s.stateFile == "" {
		return nil
	}
	b, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode course state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.stateFile), 0o755); err != nil {
		return fmt.Errorf("mkdir course state dir: %w", err)
	}
	if err := os.WriteFile(s.stateFile, b, 0o644); err != nil {
		return fmt.Errorf("write course state: %w", err)
	}
	return nil
}

func validate(reg Registration) error {
	if strings.TrimSpace(reg.StudentName) == "" {
		return fmt.Errorf("%w: studentName is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.StudentID) == "" {
		return fmt.Errorf("%w: studentID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.CourseName) == "" {
		return fmt.Errorf("%w: courseName is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.CourseID) == "" {
		return fmt.Errorf("%w: courseID is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.Email) == "" {
		return fmt.Errorf("%w: owner email is required", ErrInvalidInput)
	}
	return nil
}
