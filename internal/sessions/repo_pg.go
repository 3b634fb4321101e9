package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tagrec-backend/internal/taxonomy"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Put upserts the session. A signed-in user's previous session is removed
// first so each user holds at most one taxonomy at a time.
func (r *PGRepo) Put(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session.Taxonomy)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if session.UserID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`, session.UserID, session.ID); err != nil {
			return err
		}
	}

	const query = `
INSERT INTO sessions (id, user_id, filename, taxonomy, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	filename = EXCLUDED.filename,
	taxonomy = EXCLUDED.taxonomy,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at`
	if _, err := tx.ExecContext(ctx, query,
		session.ID,
		nullString(session.UserID),
		session.Filename,
		payload,
		session.CreatedAt,
		session.ExpiresAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns a session by ID.
func (r *PGRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	const query = `
SELECT id, user_id, filename, taxonomy, created_at, expires_at
FROM sessions
WHERE id = $1
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, sessionID))
}

// GetByUser returns the session owned by the given user.
func (r *PGRepo) GetByUser(ctx context.Context, userID string) (Session, error) {
	const query = `
SELECT id, user_id, filename, taxonomy, created_at, expires_at
FROM sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, userID))
}

// Delete removes a session.
func (r *PGRepo) Delete(ctx context.Context, sessionID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes every session past its TTL.
func (r *PGRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *PGRepo) scanOne(row *sql.Row) (Session, error) {
	var s Session
	var userID sql.NullString
	var payload []byte
	if err := row.Scan(&s.ID, &userID, &s.Filename, &payload, &s.CreatedAt, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if userID.Valid {
		s.UserID = userID.String
	}
	var model taxonomy.Model
	if err := json.Unmarshal(payload, &model); err != nil {
		return Session{}, err
	}
	s.Taxonomy = &model
	return s, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repo = (*PGRepo)(nil)
