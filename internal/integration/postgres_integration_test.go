package integration

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"studentportal/course-portal/internal/auth"
	"studentportal/course-portal/internal/course"
)

func openTestPostgres(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration tests")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open() error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.Ping(); err != nil {
		t.Fatalf("db.Ping() error: %v", err)
	}
	return db
}

func TestPostgresRegisterLoginAndCourseRoundTrip(t *testing.T) {
	db := openTestPostgres(t)

	userStore, err := auth.NewPostgresUserStore(db)
	if err != nil {
		t.Fatalf("NewPostgresUserStore() error: %v", err)
	}
	sessionStore, err := auth.NewPostgresSessionStore(db)
	if err != nil {
		t.Fatalf("NewPostgresSessionStore() error: %v", err)
	}
	authSvc, err := auth.NewService(userStore, auth.ServiceConfig{
		BcryptCost:   bcrypt.MinCost,
		SessionTTL:   time.Minute,
		SessionStore: sessionStore,
	})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}

	email := fmt.Sprintf("itest_%d@example.com", time.Now().UnixNano())

	if _, err := authSvc.Register("itest", email, "secret123"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// The unique constraint, not an application pre-check, must reject the
	// second registration.
	_, err = authSvc.Register("itest2", email, "other456")
	if !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for duplicate registration, got %v", err)
	}

	session, err := authSvc.Login(email, "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if session.UserEmail != email {
		t.Fatalf("expected session email %q, got %q", email, session.UserEmail)
	}

	courseSvc, err := course.NewPGService(db)
	if err != nil {
		t.Fatalf("NewPGService() error: %v", err)
	}
	created, err := courseSvc.Create(course.Registration{
		StudentName: "A",
		StudentID:   "1",
		CourseName:  "CS101",
		CourseID:    "C1",
		Email:       session.UserEmail,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	records, err := courseSvc.ListByEmail(email)
	if err != nil {
		t.Fatalf("ListByEmail() error: %v", err)
	}
	if len(records) != 1 || records[0].ID != created.ID {
		t.Fatalf("unexpected records: %+v", records)
	}

	if err := authSvc.Logout(session.Token); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := authSvc.ValidateToken(session.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestPostgresSessionSurvivesServiceRestart(t *testing.T) {
	db := openTestPostgres(t)

	userStore, err := auth.NewPostgresUserStore(db)
	if err != nil {
		t.Fatalf("NewPostgresUserStore() error: %v", err)
	}
	sessionStore, err := auth.NewPostgresSessionStore(db)
	if err != nil {
		t.Fatalf("NewPostgresSessionStore() error: %v", err)
	}

	newService := func() *auth.Service {
		svc, err := auth.NewService(userStore, auth.ServiceConfig{
			BcryptCost:   bcrypt.MinCost,
			SessionTTL:   time.Minute,
			SessionStore: sessionStore,
		})
		if err != nil {
			t.Fatalf("NewService() error: %v", err)
		}
		if err := svc.LoadSessionState(); err != nil {
			t.Fatalf("LoadSessionState() error: %v", err)
		}
		return svc
	}

	svc := newService()
	email := fmt.Sprintf("itest_restart_%d@example.com", time.Now().UnixNano())
	if _, err := svc.Register("itest", email, "secret123"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	session, err := svc.Login(email, "secret123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	restarted := newService()
	validated, err := restarted.ValidateToken(session.Token)
	if err != nil {
		t.Fatalf("ValidateToken() after restart error: %v", err)
	}
	if validated.UserEmail != email {
		t.Fatalf("expected restored session email %q, got %q", email, validated.UserEmail)
	}
}
