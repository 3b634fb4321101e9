package sessions

import (
	"errors"
	"time"

	"tagrec-backend/internal/taxonomy"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session binds an uploaded taxonomy to one caller for its lifetime. Guest
// sessions have an empty UserID and are only reachable through the session
// cookie; signed-in users can reopen theirs from any device.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId,omitempty"`
	Filename  string          `json:"filename"`
	Taxonomy  *taxonomy.Model `json:"taxonomy"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Expired reports whether the session is past its TTL at the given time.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
