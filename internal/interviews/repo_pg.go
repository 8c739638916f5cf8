package interviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"recruitai-backend/internal/shared/storage/db"
)

const (
	sessionsTable = "interview_sessions"
	resultsTable  = "interview_results"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectSession = `
SELECT id, recruiter_id, resume_id, public_id, candidate_name, candidate_email, job_role, key_skills,
       interview_type, num_questions, status, call_id, started_at, completed_at, created_at
FROM interview_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var resumeID, callID sql.NullString
	var startedAt, completedAt sql.NullTime
	var modality, status string
	if err := row.Scan(
		&s.ID, &s.RecruiterID, &resumeID, &s.PublicID, &s.CandidateName, &s.CandidateEmail, &s.JobRole,
		pq.Array(&s.KeySkills), &modality, &s.NumQuestions, &status, &callID, &startedAt, &completedAt, &s.CreatedAt,
	); err != nil {
		return Session{}, err
	}
	s.ResumeID = resumeID.String
	s.CallID = callID.String
	s.Modality = Modality(modality)
	s.Status = Status(status)
	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	return s, nil
}

func (r *PGRepo) getOne(ctx context.Context, where string, args ...any) (Session, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx, selectSession+"\nWHERE "+where+"\nLIMIT 1", args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, db.Read(sessionsTable, err)
	}
	return s, nil
}

func (r *PGRepo) CreateSession(ctx context.Context, s Session) error {
	const query = `
INSERT INTO interview_sessions (
	id, recruiter_id, resume_id, public_id, candidate_name, candidate_email, job_role, key_skills,
	interview_type, num_questions, status, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	skills := s.KeySkills
	if skills == nil {
		skills = []string{}
	}
	_, err := r.DB.ExecContext(ctx, query,
		s.ID, s.RecruiterID, sql.NullString{String: s.ResumeID, Valid: s.ResumeID != ""}, s.PublicID,
		s.CandidateName, s.CandidateEmail, s.JobRole, pq.Array(skills),
		string(s.Modality), s.NumQuestions, string(s.Status), s.CreatedAt,
	)
	return db.Write("insert", sessionsTable, err)
}

func (r *PGRepo) GetSession(ctx context.Context, recruiterID, id string) (Session, error) {
	if recruiterID == "" {
		return r.getOne(ctx, "id = $1", id)
	}
	return r.getOne(ctx, "id = $1 AND recruiter_id = $2", id, recruiterID)
}

func (r *PGRepo) GetSessionByPublicID(ctx context.Context, publicID string) (Session, error) {
	return r.getOne(ctx, "public_id = $1", publicID)
}

func (r *PGRepo) GetSessionByCallID(ctx context.Context, callID string) (Session, error) {
	return r.getOne(ctx, "call_id = $1", callID)
}

func (r *PGRepo) ListSessions(ctx context.Context, recruiterID string) ([]Session, error) {
	return r.list(ctx, selectSession+`
WHERE recruiter_id = $1
ORDER BY created_at DESC`, recruiterID)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, db.Read(sessionsTable, err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, db.Read(sessionsTable, err)
		}
		out = append(out, s)
	}
	return out, db.Read(sessionsTable, rows.Err())
}

// exec runs a conditional update; zero affected rows means the session was missing or in the wrong state.
func (r *PGRepo) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return db.Write(op, sessionsTable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *PGRepo) MarkStarted(ctx context.Context, id, candidateName string, at time.Time) error {
	return r.exec(ctx, "update", `
UPDATE interview_sessions
SET status = 'in_progress', started_at = $2, candidate_name = COALESCE(NULLIF($3, ''), candidate_name)
WHERE id = $1 AND status = 'scheduled'`, id, at, candidateName)
}

func (r *PGRepo) SetCallID(ctx context.Context, id, callID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE interview_sessions SET call_id = $2 WHERE id = $1`, id, callID)
	return db.Write("update", sessionsTable, err)
}

func (r *PGRepo) Complete(ctx context.Context, res Result) error {
	var evaluation []byte
	if res.Evaluation != nil {
		payload, err := json.Marshal(res.Evaluation)
		if err != nil {
			return err
		}
		evaluation = payload
	}
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		upd, err := tx.ExecContext(ctx, `
UPDATE interview_sessions
SET status = 'completed', completed_at = $2
WHERE id = $1 AND status <> 'completed'`, res.SessionID, res.CompletedAt)
		if err != nil {
			return db.Write("update", sessionsTable, err)
		}
		if n, err := upd.RowsAffected(); err == nil && n == 0 {
			return ErrInvalidTransition
		}
		var score sql.NullInt64
		if res.Score != nil {
			score = sql.NullInt64{Int64: int64(*res.Score), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO interview_results (id, session_id, candidate_name, score, summary, transcript, evaluation, decision, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			res.ID, res.SessionID, res.CandidateName, score, res.Summary, res.Transcript,
			evaluation, string(res.Decision), res.CompletedAt,
		)
		return db.Write("insert", resultsTable, err)
	})
}

func (r *PGRepo) ListStale(ctx context.Context, cutoff time.Time) ([]Session, error) {
	return r.list(ctx, selectSession+`
WHERE status = 'in_progress' AND started_at < $1`, cutoff)
}

func (r *PGRepo) ResetToScheduled(ctx context.Context, id string) error {
	return r.exec(ctx, "update", `
UPDATE interview_sessions
SET status = 'scheduled', started_at = NULL
WHERE id = $1 AND status = 'in_progress'`, id)
}

func (r *PGRepo) GetResult(ctx context.Context, sessionID string) (Result, error) {
	var res Result
	var score sql.NullInt64
	var evaluation []byte
	var decision string
	err := r.DB.QueryRowContext(ctx, `
SELECT id, session_id, candidate_name, score, summary, transcript, evaluation, decision, completed_at
FROM interview_results
WHERE session_id = $1`, sessionID).Scan(
		&res.ID, &res.SessionID, &res.CandidateName, &score, &res.Summary, &res.Transcript, &evaluation, &decision, &res.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, db.Read(resultsTable, err)
	}
	res.Decision = Decision(decision)
	if score.Valid {
		v := int(score.Int64)
		res.Score = &v
	}
	if len(evaluation) > 0 {
		var ev Evaluation
		if err := json.Unmarshal(evaluation, &ev); err == nil {
			res.Evaluation = &ev
		}
	}
	return res, nil
}

func (r *PGRepo) UpdateDecision(ctx context.Context, sessionID string, d Decision) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE interview_results SET decision = $2 WHERE session_id = $1`, sessionID, string(d))
	if err != nil {
		return db.Write("update", resultsTable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
