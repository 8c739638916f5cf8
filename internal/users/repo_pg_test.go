package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoUpsertReturnsCreatedAt(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	repo := &PGRepo{DB: conn}

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u1", "a@x.io", "Ana", "Acme", nil, true, now).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	u, err := repo.Upsert(context.Background(), User{ID: "u1", Email: "a@x.io", FullName: "Ana", Company: "Acme", Onboarded: true, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at from the existing row, got %v", u.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	repo := &PGRepo{DB: conn}
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "company", "job_title", "onboarded", "created_at", "updated_at"}).
			AddRow("u1", "a@x.io", "Ana", nil, "Lead", true, now, now))
	mock.ExpectQuery("FROM users").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Company != "" || u.JobTitle != "Lead" || !u.Onboarded {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
