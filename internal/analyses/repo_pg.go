package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"recruitai-backend/internal/shared/storage/db"
)

const screeningTable = "resume_screened"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new screening.
func (r *PGRepo) Create(ctx context.Context, s Screening) error {
	const query = `
INSERT INTO resume_screened (
	id, recruiter_id, file_name, file_key, job_role, job_description,
	candidate_name, candidate_email, score, analysis_raw, analysis_json, incomplete, uploaded_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	payload, err := json.Marshal(s.Analysis)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		s.ID,
		s.RecruiterID,
		s.FileName,
		s.FileKey,
		s.JobRole,
		s.JobDescription,
		nullString(s.CandidateName),
		nullString(s.CandidateEmail),
		nullInt(s.Score),
		s.AnalysisRaw,
		payload,
		s.Incomplete,
		s.UploadedAt,
	)
	return db.Write("insert", screeningTable, err)
}

const selectScreening = `
SELECT id, recruiter_id, file_name, file_key, job_role, job_description,
       candidate_name, candidate_email, score, analysis_raw, analysis_json, incomplete, uploaded_at
FROM resume_screened`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScreening(row rowScanner) (Screening, error) {
	var s Screening
	var name, email sql.NullString
	var score sql.NullInt64
	var payload []byte
	if err := row.Scan(
		&s.ID, &s.RecruiterID, &s.FileName, &s.FileKey, &s.JobRole, &s.JobDescription,
		&name, &email, &score, &s.AnalysisRaw, &payload, &s.Incomplete, &s.UploadedAt,
	); err != nil {
		return Screening{}, err
	}
	s.CandidateName = name.String
	s.CandidateEmail = email.String
	if score.Valid {
		v := int(score.Int64)
		s.Score = &v
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &s.Analysis); err != nil {
			return Screening{}, err
		}
	}
	s.Missing = s.Analysis.Missing()
	return s, nil
}

// Get returns one screening owned by the recruiter.
func (r *PGRepo) Get(ctx context.Context, recruiterID, id string) (Screening, error) {
	row := r.DB.QueryRowContext(ctx, selectScreening+`
WHERE id = $1 AND recruiter_id = $2
LIMIT 1`, id, recruiterID)
	s, err := scanScreening(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Screening{}, ErrNotFound
	}
	if err != nil {
		return Screening{}, db.Read(screeningTable, err)
	}
	return s, nil
}

// ListByRecruiter returns screenings newest first.
func (r *PGRepo) ListByRecruiter(ctx context.Context, recruiterID string, limit, offset int) ([]Screening, error) {
	rows, err := r.DB.QueryContext(ctx, selectScreening+`
WHERE recruiter_id = $1
ORDER BY uploaded_at DESC
LIMIT $2 OFFSET $3`, recruiterID, limit, offset)
	if err != nil {
		return nil, db.Read(screeningTable, err)
	}
	defer rows.Close()

	var out []Screening
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, db.Read(screeningTable, err)
		}
		out = append(out, s)
	}
	return out, db.Read(screeningTable, rows.Err())
}

// Delete removes a screening row.
func (r *PGRepo) Delete(ctx context.Context, recruiterID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resume_screened WHERE id = $1 AND recruiter_id = $2`, id, recruiterID)
	if err != nil {
		return db.Write("delete", screeningTable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
