package users

import (
	"context"
	"database/sql"
	"errors"

	"recruitai-backend/internal/shared/storage/db"
)

const usersTable = "users"

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (id, email, full_name, company, job_title, onboarded, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  company = EXCLUDED.company,
  job_title = EXCLUDED.job_title,
  onboarded = EXCLUDED.onboarded,
  updated_at = EXCLUDED.updated_at
RETURNING created_at`
	err := r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		nullableString(user.FullName),
		nullableString(user.Company),
		nullableString(user.JobTitle),
		user.Onboarded,
		user.UpdatedAt,
	).Scan(&user.CreatedAt)
	if err != nil {
		return User{}, db.Write("upsert", usersTable, err)
	}
	return user, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, full_name, company, job_title, onboarded, created_at, updated_at
FROM users
WHERE id = $1`
	var user User
	var fullName, company, jobTitle sql.NullString
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&fullName,
		&company,
		&jobTitle,
		&user.Onboarded,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, db.Read(usersTable, err)
	}
	user.FullName = fullName.String
	user.Company = company.String
	user.JobTitle = jobTitle.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
