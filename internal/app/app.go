package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"studentportal/course-portal/internal/audit"
	"studentportal/course-portal/internal/auth"
	"studentportal/course-portal/internal/config"
	"studentportal/course-portal/internal/course"
	"studentportal/course-portal/internal/httpserver"
	"studentportal/course-portal/internal/observability"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	db     *sql.DB
	server *httpserver.Server
}

func New(cfg config.Config) (*App, error) {
	logger := observability.NewLogger()

	var err error
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}

	var userStore auth.UserStore
	var sessionStore auth.SessionStore
	if db != nil {
		userStore, err = auth.NewPostgresUserStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres user store: %w", err)
		}
		sessionStore, err = auth.NewPostgresSessionStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres session store: %w", err)
		}
	} else {
		userStore, err = auth.NewFileUserStore(cfg.Auth.UserStateFile)
		if err != nil {
			return nil, fmt.Errorf("create user store: %w", err)
		}
	}

	authService, err := auth.NewService(userStore, auth.ServiceConfig{
		BcryptCost:       cfg.Auth.BcryptCost,
		SessionTTL:       cfg.Auth.SessionTTL,
		SessionStateFile: cfg.Auth.SessionStateFile,
		SessionStore:     sessionStore,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	if err := authService.LoadSessionState(); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("load session state: %w", err)
	}

	var courseService httpserver.CourseService
	if db != nil {
		courseService, err = course.NewPGService(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create postgres course service: %w", err)
		}
	} else {
		courseService, err = course.NewServiceWithFile(cfg.CourseStateFile)
		if err != nil {
			return nil, fmt.Errorf("create course service: %w", err)
		}
	}

	auditLogger := audit.NewLogger(cfg.AuditLogFile)

	server := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:          authService,
		Courses:       courseService,
		Audit:         auditLogger,
		Log:           logger,
		SessionCookie: cfg.Auth.SessionCookie,
		StaticDir:     cfg.StaticDir,
	})

	return &App{
		cfg:    cfg,
		log:    logger,
		db:     db,
		server: server,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}
