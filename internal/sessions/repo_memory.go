package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores sessions in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Session
	byUser map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Session),
		byUser: make(map[string]string),
	}
}

// Put stores or replaces the session. A user's previous session, if any, is
// dropped so each user holds at most one taxonomy at a time.
func (r *MemoryRepo) Put(ctx context.Context, session Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.UserID != "" {
		if oldID, ok := r.byUser[session.UserID]; ok && oldID != session.ID {
			delete(r.byID, oldID)
		}
		r.byUser[session.UserID] = session.ID
	}
	r.byID[session.ID] = session
	return nil
}

// Get returns a session by its ID.
func (r *MemoryRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byID[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// GetByUser returns the session owned by the given user.
func (r *MemoryRepo) GetByUser(ctx context.Context, userID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	if !ok {
		return Session{}, ErrNotFound
	}
	session, ok := r.byID[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Delete removes a session.
func (r *MemoryRepo) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[sessionID]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, sessionID)
	if session.UserID != "" && r.byUser[session.UserID] == sessionID {
		delete(r.byUser, session.UserID)
	}
	return nil
}

// DeleteExpired removes every session past its TTL and reports how many
// were dropped.
func (r *MemoryRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, session := range r.byID {
		if !session.Expired(now) {
			continue
		}
		delete(r.byID, id)
		if session.UserID != "" && r.byUser[session.UserID] == id {
			delete(r.byUser, session.UserID)
		}
		removed++
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
