package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tagrec-backend/internal/shared/metrics"
	"tagrec-backend/internal/shared/telemetry"
	"tagrec-backend/internal/shared/util"
	"tagrec-backend/internal/taxonomy"
)

// DefaultTTL matches the taxonomy retention window: an uploaded workbook is
// kept for a day, then swept.
const DefaultTTL = 24 * time.Hour

// Service contains business logic for taxonomy sessions.
type Service struct {
	Repo Repo
	TTL  time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTTL
}

// Create builds a taxonomy from the extract and stores it in a fresh
// session. The previous session for the same id, if any, is replaced
// wholesale: a partially applied upload never exists.
func (s *Service) Create(ctx context.Context, sessionID, userID, filename string, extract taxonomy.Extract) (Session, error) {
	model, err := taxonomy.Build(extract)
	if err != nil {
		return Session{}, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().UTC()
	session := Session{
		ID:        sessionID,
		UserID:    userID,
		Filename:  filename,
		Taxonomy:  model,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Repo.Put(ctx, session); err != nil {
		return Session{}, err
	}

	metrics.IncTaxonomyUploads()
	fields := map[string]any{
		"session_id": session.ID,
		"filename":   filename,
		"node_count": model.NodeCount,
		"sheets":     len(model.Sheets),
	}
	if userID != "" {
		fields["user_key"] = util.HashUserKey(userID)
	}
	telemetry.Info("taxonomy session created", fields)
	return session, nil
}

// Get returns a live session. Expired sessions are deleted on sight and
// reported as ErrExpired.
func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	session, err := s.Repo.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Expired(time.Now().UTC()) {
		_ = s.Repo.Delete(ctx, sessionID)
		return Session{}, ErrExpired
	}
	return session, nil
}

// GetForUser returns the signed-in user's live session.
func (s *Service) GetForUser(ctx context.Context, userID string) (Session, error) {
	session, err := s.Repo.GetByUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if session.Expired(time.Now().UTC()) {
		_ = s.Repo.Delete(ctx, session.ID)
		return Session{}, ErrExpired
	}
	return session, nil
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	return s.Repo.Delete(ctx, sessionID)
}

// StartCleanup sweeps expired sessions once at startup and then on the
// given interval until the context is cancelled.
func (s *Service) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Service) sweep(ctx context.Context) {
	removed, err := s.Repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			telemetry.Error("session cleanup failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if removed > 0 {
		telemetry.Info("expired sessions removed", map[string]any{"count": removed})
	}
}
