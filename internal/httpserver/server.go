package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"studentportal/course-portal/internal/audit"
	"studentportal/course-portal/internal/auth"
	"studentportal/course-portal/internal/config"
	"studentportal/course-portal/internal/course"
)

type AuthService interface {
	Register(username, email, password string) (auth.User, error)
	Login(email, password string) (auth.Session, error)
	ValidateToken(token string) (auth.Session, error)
	Logout(token string) error
}

type CourseService interface {
	Create(reg course.Registration) (course.Registration, error)
	ListByEmail(email string) ([]course.Registration, error)
}

type AuditLogger interface {
	Log(e audit.Event) error
}

type Deps struct {
	Auth          AuthService
	Courses       CourseService
	Audit         AuditLogger
	Log           *slog.Logger
	SessionCookie string
	StaticDir     string
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	handler := NewHandler(deps)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      loggingMiddleware(handler),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

func NewHandler(deps Deps) http.Handler {
	if deps.SessionCookie == "" {
		deps.SessionCookie = "session_token"
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/v1/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "course-portal-api",
			"version": "0.1.0",
		})
	})

	registerAuthHandlers(mux, deps)
	registerCourseHandlers(mux, deps)
	registerStaticHandlers(mux, deps.StaticDir)

	return mux
}

func registerAuthHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if deps.Auth == nil {
			writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			return
		}

		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, map[string]*string{
			"username": &req.Username,
			"email":    &req.Email,
			"password": &req.Password,
		}); err != nil {
			writeNotice(w, r, http.StatusBadRequest, "Invalid registration request!", "/register.html")
			return
		}
		if req.Username == "" || req.Email == "" || req.Password == "" {
			writeNotice(w, r, http.StatusBadRequest, "Username, email, and password are required!", "/register.html")
			return
		}

		user, err := deps.Auth.Register(req.Username, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrEmailTaken) {
				auditReq(deps.Audit, r, req.Email, "auth.register", "", "failed", "duplicate email")
				writeNotice(w, r, http.StatusConflict, "User with this email already exists!", "/register.html")
				return
			}
			deps.Log.Error("registration failed", "email", req.Email, "err", err)
			auditReq(deps.Audit, r, req.Email, "auth.register", "", "failed", err.Error())
			writeNotice(w, r, http.StatusInternalServerError, "Error occurred during registration!", "/register.html")
			return
		}
		auditReq(deps.Audit, r, user.Email, "auth.register", "", "success", "")
		writeNotice(w, r, http.StatusCreated, "Registration Successful!", "/login.html")
	})

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if deps.Auth == nil {
			writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, map[string]*string{
			"email":    &req.Email,
			"password": &req.Password,
		}); err != nil {
			writeNotice(w, r, http.StatusBadRequest, "Invalid login request!", "/login.html")
			return
		}

		session, err := deps.Auth.Login(req.Email, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				auditReq(deps.Audit, r, req.Email, "auth.login", "", "failed", "user not found")
				writeNotice(w, r, http.StatusUnauthorized, "User not found!", "/login.html")
			case errors.Is(err, auth.ErrInvalidCredentials):
				auditReq(deps.Audit, r, req.Email, "auth.login", "", "failed", "incorrect password")
				writeNotice(w, r, http.StatusUnauthorized, "Incorrect Password!", "/login.html")
			default:
				deps.Log.Error("login failed", "email", req.Email, "err", err)
				auditReq(deps.Audit, r, req.Email, "auth.login", "", "failed", err.Error())
				writeNotice(w, r, http.StatusInternalServerError, "Error occurred during login!", "/login.html")
			}
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     deps.SessionCookie,
			Value:    session.Token,
			Path:     "/",
			Expires:  session.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		auditReq(deps.Audit, r, session.UserEmail, "auth.login", "", "success", "")
		writeNotice(w, r, http.StatusOK, "Login Successful!", "/dashboard.html")
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if token := sessionToken(r, deps.SessionCookie); token != "" && deps.Auth != nil {
			if session, err := deps.Auth.ValidateToken(token); err == nil {
				auditReq(deps.Audit, r, session.UserEmail, "auth.logout", "", "success", "")
			}
			_ = deps.Auth.Logout(token)
		}

		// Expire the cookie regardless of whether a session existed.
		http.SetCookie(w, &http.Cookie{
			Name:     deps.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		http.Redirect(w, r, "/index.html", http.StatusFound)
	})
}

func registerCourseHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("/save-course", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if deps.Courses == nil {
			writeError(w, http.StatusServiceUnavailable, "course service unavailable")
			return
		}

		session, ok := currentSession(r, deps)
		if !ok {
			writeNotice(w, r, http.StatusUnauthorized, "You must login first!", "/login.html")
			return
		}

		var req struct {
			StudentName string `json:"studentName"`
			StudentID   string `json:"studentID"`
			CourseName  string `json:"courseName"`
			CourseID    string `json:"courseID"`
		}
		if err := decodeBody(r, map[string]*string{
			"studentName": &req.StudentName,
			"studentID":   &req.StudentID,
			"courseName":  &req.CourseName,
			"courseID":    &req.CourseID,
		}); err != nil {
			writeNotice(w, r, http.StatusBadRequest, "Invalid course request!", "/courses.html")
			return
		}

		created, err := deps.Courses.Create(course.Registration{
			StudentName: req.StudentName,
			StudentID:   req.StudentID,
			CourseName:  req.CourseName,
			CourseID:    req.CourseID,
			// Owner comes from the session, never from the client.
			Email: session.UserEmail,
		})
		if err != nil {
			if errors.Is(err, course.ErrInvalidInput) {
				auditReq(deps.Audit, r, session.UserEmail, "course.save", "", "failed", err.Error())
				writeNotice(w, r, http.StatusBadRequest, "All course fields are required!", "/courses.html")
				return
			}
			deps.Log.Error("save course failed", "email", session.UserEmail, "err", err)
			auditReq(deps.Audit, r, session.UserEmail, "course.save", "", "failed", err.Error())
			writeNotice(w, r, http.StatusInternalServerError, "Error occurred while saving course!", "/courses.html")
			return
		}
		auditReq(deps.Audit, r, session.UserEmail, "course.save", created.ID, "success", "")
		writeNotice(w, r, http.StatusCreated, "Course Registered Successfully!", "/courses.html")
	})

	mux.HandleFunc("/my-courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if deps.Courses == nil {
			writeError(w, http.StatusServiceUnavailable, "course service unavailable")
			return
		}

		session, ok := currentSession(r, deps)
		if !ok {
			writeJSON(w, http.StatusOK, []course.Registration{})
			return
		}

		records, err := deps.Courses.ListByEmail(session.UserEmail)
		if err != nil {
			// A read failure is downgraded to an empty list; only the log
			// distinguishes it from "no records".
			deps.Log.Warn("list courses failed", "email", session.UserEmail, "err", err)
			writeJSON(w, http.StatusOK, []course.Registration{})
			return
		}
		writeJSON(w, http.StatusOK, records)
	})
}

func registerStaticHandlers(mux *http.ServeMux, staticDir string) {
	staticDir = strings.TrimSpace(staticDir)
	if staticDir == "" {
		return
	}
	indexPath := filepath.Join(staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		return
	}

	fileServer := http.FileServer(http.Dir(staticDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean(r.URL.Path)
		if cleanPath == "." || cleanPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		fullPath := filepath.Join(staticDir, strings.TrimPrefix(cleanPath, "/"))
		info, err := os.Stat(fullPath)
		if err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// currentSession resolves the session from the cookie, falling back to a
// bearer token for non-browser clients.
func currentSession(r *http.Request, deps Deps) (auth.Session, bool) {
	if deps.Auth == nil {
		return auth.Session{}, false
	}
	token := sessionToken(r, deps.SessionCookie)
	if token == "" {
		return auth.Session{}, false
	}
	session, err := deps.Auth.ValidateToken(token)
	if err != nil {
		return auth.Session{}, false
	}
	return session, true
}

func sessionToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	token, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// decodeBody reads the named fields from a JSON body or a form post,
// whichever the client sent.
func decodeBody(r *http.Request, fields map[string]*string) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		raw := make(map[string]string)
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return fmt.Errorf("decode json body: %w", err)
		}
		for name, dst := range fields {
			*dst = strings.TrimSpace(raw[name])
		}
		return nil
	}

	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	for name, dst := range fields {
		*dst = strings.TrimSpace(r.PostFormValue(name))
	}
	return nil
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var noticeTmpl = template.Must(template.New("notice").Parse(
	`<script>alert({{.Message}});window.location.href={{.Redirect}};</script>`))

// writeNotice reports a handler outcome as a (status, message, redirect)
// triple. Browser form posts get the alert-and-redirect snippet the pages
// expect; everyone else gets the triple as JSON.
func writeNotice(w http.ResponseWriter, r *http.Request, status int, message, redirect string) {
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = noticeTmpl.Execute(w, struct{ Message, Redirect string }{message, redirect})
		return
	}
	writeJSON(w, status, map[string]string{
		"message":  message,
		"redirect": redirect,
	})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = newRequestID()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
	})
}

type requestIDKey struct{}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func auditReq(a AuditLogger, r *http.Request, actor, action, target, outcome, detail string) {
	if a == nil {
		return
	}
	_ = a.Log(audit.Event{
		Actor:     actor,
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		RequestID: requestIDFromContext(r.Context()),
		ClientIP:  clientIP(r),
		Detail:    detail,
	})
}
