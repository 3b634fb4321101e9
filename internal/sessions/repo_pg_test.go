package sessions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tagrec-backend/internal/taxonomy"
)

func pgTestSession(t *testing.T) Session {
	t.Helper()
	model, err := taxonomy.Build(taxonomy.Extract{Sheets: []taxonomy.Sheet{{
		Name: "Billing",
		Rows: [][]string{{"Refund", "Money back"}},
	}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	now := time.Now().UTC()
	return Session{
		ID:        "session-1",
		UserID:    "user-1",
		Filename:  "taxonomy.xlsx",
		Taxonomy:  model,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}
}

func TestPGRepoPutUpsertsAndEvictsOldUserSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	session := pgTestSession(t)
	repo := &PGRepo{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs(session.UserID, session.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			session.ID,
			session.UserID,
			session.Filename,
			sqlmock.AnyArg(), // taxonomy jsonb
			session.CreatedAt,
			session.ExpiresAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Put(context.Background(), session); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetRoundTripsTaxonomy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	session := pgTestSession(t)
	payload, err := json.Marshal(session.Taxonomy)
	if err != nil {
		t.Fatalf("marshal taxonomy: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "user_id", "filename", "taxonomy", "created_at", "expires_at"}).
		AddRow(session.ID, session.UserID, session.Filename, payload, session.CreatedAt, session.ExpiresAt)
	mock.ExpectQuery("SELECT id, user_id, filename, taxonomy").
		WithArgs(session.ID).
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	got, err := repo.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != session.ID || got.UserID != session.UserID {
		t.Fatalf("got = %+v", got)
	}
	if got.Taxonomy == nil || !got.Taxonomy.Contains("billing/refund") {
		t.Fatalf("taxonomy did not round-trip: %+v", got.Taxonomy)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, user_id, filename, taxonomy").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "filename", "taxonomy", "created_at", "expires_at"}))

	repo := &PGRepo{DB: db}
	if _, err := repo.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := &PGRepo{DB: db}
	removed, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}
}
