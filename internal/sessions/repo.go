package sessions

import (
	"context"
	"time"
)

// Repo defines persistence operations for sessions.
type Repo interface {
	Put(ctx context.Context, session Session) error
	Get(ctx context.Context, sessionID string) (Session, error)
	GetByUser(ctx context.Context, userID string) (Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
