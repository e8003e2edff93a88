package auth

import "time"

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Session is the server-side state behind an opaque token. The client only
// ever sees the token; UserEmail is what ties created records to an account.
type Session struct {
	ID        string
	Token     string
	UserEmail string
	CreatedAt time.Time
	ExpiresAt time.Time
}
