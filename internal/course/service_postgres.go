package course

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PGService struct {
	db      *sql.DB
	nowFunc func() time.Time
}

func NewPGService(db *sql.DB) (*PGService, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	s := &PGService{
		db:      db,
		nowFunc: time.Now,
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PGService) ensureSchema() error {
	// No uniqueness on (student_id, course_id): a student may register the
	// same course twice and both rows are kept.
	const q = `
CREATE TABLE IF NOT EXISTS course_registrations (
	id TEXT PRIMARY KEY,
	student_name TEXT NOT NULL,
	student_id TEXT NOT NULL,
	course_name TEXT NOT NULL,
	course_id TEXT NOT NULL,
	email TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.Exec(q); err != nil {
		return fmt.Errorf("ensure course_registrations schema: %w", err)
	}
	return nil
}

func (s *PGService) Create(reg Registration) (Registration, error) {
	if err := validate(reg); err != nil {
		return Registration{}, err
	}

	reg.ID = uuid.NewString()
	reg.StudentName = strings.TrimSpace(reg.StudentName)
	reg.StudentID = strings.TrimSpace(reg.StudentID)
	reg.CourseName = strings.TrimSpace(reg.CourseName)
	reg.CourseID = strings.TrimSpace(reg.CourseID)
	reg.CreatedAt = s.nowFunc().UTC()

	const q = `
INSERT INTO course_registrations
  (id, student_name, student_id, course_name, course_id, email, created_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.Exec(q, reg.ID, reg.StudentName, reg.StudentID, reg.CourseName, reg.CourseID, reg.Email, reg.CreatedAt); err != nil {
		return Registration{}, fmt.Errorf("insert course registration: %w", err)
	}
	return reg, nil
}

func (s *PGService) ListByEmail(email string) ([]Registration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return []Registration{}, nil
	}

	const q = `
SELECT id, student_name, student_id, course_name, course_id, email, created_at
FROM course_registrations
WHERE LOWER(email) = $1
ORDER BY created_at ASC`
	rows, err := s.db.Query(q, email)
	if err != nil {
		return nil, fmt.Errorf("query course registrations: %w", err)
	}
	defer rows.Close()

	out := make([]Registration, 0)
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ID, &r.StudentName, &r.StudentID, &r.CourseName, &r.CourseID, &r.Email, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course registrations: %w", err)
	}
	return out, nil
}
