package candidates

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"recruitai-backend/internal/shared/storage/db"
)

const (
	pipelineTable = "candidate_pipeline"
	statusTable   = "candidate_status"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectCandidate = `
SELECT id, owner_id, candidate_name, candidate_email, status, submission_id, created_at, updated_at
FROM candidate_pipeline`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (Candidate, error) {
	var c Candidate
	var submissionID sql.NullString
	if err := row.Scan(&c.ID, &c.OwnerID, &c.CandidateName, &c.CandidateEmail, &c.Status, &submissionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Candidate{}, err
	}
	c.SubmissionID = submissionID.String
	return c, nil
}

func (r *PGRepo) Add(ctx context.Context, c Candidate) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO candidate_pipeline (id, owner_id, candidate_name, candidate_email, status, submission_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.OwnerID, c.CandidateName, c.CandidateEmail, c.Status,
		sql.NullString{String: c.SubmissionID, Valid: c.SubmissionID != ""}, c.CreatedAt, c.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return db.Write("insert", pipelineTable, err)
}

func (r *PGRepo) Get(ctx context.Context, ownerID, id string) (Candidate, error) {
	c, err := scanCandidate(r.DB.QueryRowContext(ctx, selectCandidate+`
WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Candidate{}, ErrNotFound
	}
	if err != nil {
		return Candidate{}, db.Read(pipelineTable, err)
	}
	return c, nil
}

func (r *PGRepo) List(ctx context.Context, ownerID string) ([]Candidate, error) {
	rows, err := r.DB.QueryContext(ctx, selectCandidate+`
WHERE owner_id = $1
ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, db.Read(pipelineTable, err)
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, db.Read(pipelineTable, err)
		}
		out = append(out, c)
	}
	return out, db.Read(pipelineTable, rows.Err())
}

// UpdateStatus overwrites the status; the latest write wins.
func (r *PGRepo) UpdateStatus(ctx context.Context, ownerID, id, status string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE candidate_pipeline SET status = $3, updated_at = $4
WHERE id = $1 AND owner_id = $2`, id, ownerID, status, at)
	if err != nil {
		return db.Write("update", pipelineTable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Remove(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM candidate_pipeline WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return db.Write("delete", pipelineTable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, order_index FROM candidate_status ORDER BY order_index`)
	if err != nil {
		return nil, db.Read(statusTable, err)
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.OrderIndex); err != nil {
			return nil, db.Read(statusTable, err)
		}
		out = append(out, s)
	}
	return out, db.Read(statusTable, rows.Err())
}
