package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/tradejournal/internal/models"
)

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

var userCols = []string{"id", "name", "email", "phone_number", "password_hash", "is_admin", "created_at"}

func TestCreateUser_Success(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	u := &models.User{ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: []byte("hash"), CreatedAt: created}
	mock.ExpectExec("INSERT INTO users").
		WithArgs("u1", "Alice", "alice@example.com", nil, []byte("hash"), false, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.CreateUser(context.Background(), &models.User{ID: "u1", Email: "alice@example.com"})
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("CreateUser error = %v; want ErrConflict", err)
	}
}

func TestCreateUser_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("insert failed"))

	err := repo.CreateUser(context.Background(), &models.User{ID: "u1"})
	if err == nil || errors.Is(err, models.ErrConflict) {
		t.Errorf("CreateUser error = %v; want plain failure", err)
	}
}

func TestUserByEmail(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(email) = lower($1)`)).
		WithArgs("Alice@Example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "Alice", "alice@example.com", "+100", []byte("hash"), true, created))

	u, err := repo.UserByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || !u.IsAdmin || string(u.PasswordHash) != "hash" {
		t.Errorf("unexpected user: %+v", u)
	}
	if u.PhoneNumber == nil || *u.PhoneNumber != "+100" {
		t.Errorf("PhoneNumber = %v; want +100", u.PhoneNumber)
	}
}

func TestUserByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.UserByID(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UserByID error = %v; want ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := models.AuthSession{
		AccessToken:      "acc",
		RefreshToken:     "ref",
		UserID:           "u1",
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
	cols := []string{"access_token", "refresh_token", "user_id", "access_expires_at", "refresh_expires_at"}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("acc", "ref", "u1", s.AccessExpiresAt, s.RefreshExpiresAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE access_token = $1`)).
		WithArgs("acc").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("acc", "ref", "u1", s.AccessExpiresAt, s.RefreshExpiresAt))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE refresh_token = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectExec("UPDATE sessions SET access_token").
		WithArgs("acc2", now.Add(2*time.Hour), "ref").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET access_token").
		WithArgs("acc3", now, "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("acc2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := repo.SessionByAccessToken(ctx, "acc")
	if err != nil {
		t.Fatalf("SessionByAccessToken: %v", err)
	}
	if *got != s {
		t.Errorf("session = %+v; want %+v", *got, s)
	}
	if _, err := repo.SessionByRefreshToken(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("SessionByRefreshToken error = %v; want ErrNotFound", err)
	}
	if err := repo.RotateAccessToken(ctx, "ref", "acc2", now.Add(2*time.Hour)); err != nil {
		t.Errorf("RotateAccessToken: %v", err)
	}
	if err := repo.RotateAccessToken(ctx, "gone", "acc3", now); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("RotateAccessToken error = %v; want ErrNotFound", err)
	}
	if err := repo.DeleteSession(ctx, "acc2"); err != nil {
		t.Errorf("DeleteSession: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
