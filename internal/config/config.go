package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTP            HTTPConfig
	DatabaseURL     string
	Auth            AuthConfig
	StaticDir       string
	CourseStateFile string
	AuditLogFile    string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	BcryptCost       int
	SessionTTL       time.Duration
	SessionCookie    string
	SessionStateFile string
	UserStateFile    string
}

func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":5000"),
			ReadTimeout:     time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SEC", 10)) * time.Second,
			WriteTimeout:    time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 15)) * time.Second,
			ShutdownTimeout: time.Duration(getEnvInt("HTTP_SHUTDOWN_TIMEOUT_SEC", 20)) * time.Second,
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Auth: AuthConfig{
			BcryptCost:       getEnvInt("AUTH_BCRYPT_COST", 10),
			SessionTTL:       time.Duration(getEnvInt("AUTH_SESSION_TTL_SEC", 3600)) * time.Second,
			SessionCookie:    getEnv("AUTH_SESSION_COOKIE", "session_token"),
			SessionStateFile: getEnv("AUTH_SESSION_STATE_FILE", "./data/sessions.json"),
			UserStateFile:    getEnv("AUTH_USER_STATE_FILE", "./data/users.json"),
		},
		StaticDir:       getEnv("STATIC_DIR", "./public"),
		CourseStateFile: getEnv("COURSE_STATE_FILE", "./data/courses.json"),
		AuditLogFile:    getEnv("AUDIT_LOG_FILE", "./data/audit.log"),
	}

	if cfg.HTTP.Addr == "" {
		return Config{}, fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return Config{}, fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("AUTH_SESSION_TTL_SEC must be > 0")
	}
	if cfg.Auth.SessionCookie == "" {
		return Config{}, fmt.Errorf("AUTH_SESSION_COOKIE must not be empty")
	}
	if cfg.Auth.SessionStateFile == "" {
		return Config{}, fmt.Errorf("AUTH_SESSION_STATE_FILE must not be empty")
	}
	if cfg.Auth.UserStateFile == "" {
		return Config{}, fmt.Errorf("AUTH_USER_STATE_FILE must not be empty")
	}
	if cfg.CourseStateFile == "" {
		return Config{}, fmt.Errorf("COURSE_STATE_FILE must not be empty")
	}
	if cfg.AuditLogFile == "" {
		return Config{}, fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
