package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"recruitai-backend/internal/shared/storage/db"
)

const (
	formsTable       = "custom_forms"
	fieldsTable      = "form_fields"
	submissionsTable = "form_submissions"
	responsesTable   = "form_field_responses"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectForm = `
SELECT id, owner_id, title, description, slug, is_active, settings, created_at, updated_at
FROM custom_forms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (Form, error) {
	var f Form
	var settings []byte
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Title, &f.Description, &f.Slug, &f.IsActive, &settings, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return Form{}, err
	}
	f.Settings = decodeObject(settings)
	return f, nil
}

func decodeObject(raw []byte) map[string]any {
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func encodeObject(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func insertField(ctx context.Context, tx *sql.Tx, f Field) error {
	rules, err := encodeObject(f.ValidationRules)
	if err != nil {
		return err
	}
	options := f.Options
	if options == nil {
		options = []string{}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO form_fields (id, form_id, field_type, label, placeholder, is_required, options, validation_rules, order_index)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.FormID, string(f.Type), f.Label, f.Placeholder, f.Required, pq.Array(options), rules, f.OrderIndex,
	)
	return db.Write("insert", fieldsTable, err)
}

func (r *PGRepo) CreateForm(ctx context.Context, f Form) error {
	settings, err := encodeObject(f.Settings)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO custom_forms (id, owner_id, title, description, slug, is_active, settings, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			f.ID, f.OwnerID, f.Title, f.Description, f.Slug, f.IsActive, settings, f.CreatedAt, f.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		if err != nil {
			return db.Write("insert", formsTable, err)
		}
		for _, field := range f.Fields {
			if err := insertField(ctx, tx, field); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepo) loadFields(ctx context.Context, q querier, formID string) ([]Field, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, form_id, field_type, label, placeholder, is_required, options, validation_rules, order_index
FROM form_fields
WHERE form_id = $1
ORDER BY order_index`, formID)
	if err != nil {
		return nil, db.Read(fieldsTable, err)
	}
	defer rows.Close()
	out := []Field{}
	for rows.Next() {
		var f Field
		var typ string
		var rules []byte
		if err := rows.Scan(&f.ID, &f.FormID, &typ, &f.Label, &f.Placeholder, &f.Required, pq.Array(&f.Options), &rules, &f.OrderIndex); err != nil {
			return nil, db.Read(fieldsTable, err)
		}
		f.Type = FieldType(typ)
		f.ValidationRules = decodeObject(rules)
		if f.Options == nil {
			f.Options = []string{}
		}
		out = append(out, f)
	}
	return out, db.Read(fieldsTable, rows.Err())
}

func (r *PGRepo) getForm(ctx context.Context, where string, args ...any) (Form, error) {
	f, err := scanForm(r.DB.QueryRowContext(ctx, selectForm+"\nWHERE "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Form{}, ErrNotFound
	}
	if err != nil {
		return Form{}, db.Read(formsTable, err)
	}
	if f.Fields, err = r.loadFields(ctx, r.DB, f.ID); err != nil {
		return Form{}, err
	}
	return f, nil
}

func (r *PGRepo) GetForm(ctx context.Context, ownerID, id string) (Form, error) {
	if ownerID == "" {
		return r.getForm(ctx, "id = $1", id)
	}
	return r.getForm(ctx, "id = $1 AND owner_id = $2", id, ownerID)
}

func (r *PGRepo) GetFormBySlug(ctx context.Context, slug string) (Form, error) {
	return r.getForm(ctx, "slug = $1", slug)
}

func (r *PGRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM custom_forms WHERE slug = $1)`, slug).Scan(&exists)
	return exists, db.Read(formsTable, err)
}

func (r *PGRepo) ListForms(ctx context.Context, ownerID string) ([]Form, error) {
	rows, err := r.DB.QueryContext(ctx, selectForm+`
WHERE owner_id = $1
ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, db.Read(formsTable, err)
	}
	var out []Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			rows.Close()
			return nil, db.Read(formsTable, err)
		}
		out = append(out, f)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, db.Read(formsTable, err)
	}
	for i := range out {
		if out[i].Fields, err = r.loadFields(ctx, r.DB, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PGRepo) UpdateForm(ctx context.Context, f Form) error {
	settings, err := encodeObject(f.Settings)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE custom_forms
SET title = $3, description = $4, settings = $5, is_active = $6, updated_at = $7
WHERE id = $1 AND owner_id = $2`, f.ID, f.OwnerID, f.Title, f.Description, settings, f.IsActive, f.UpdatedAt)
	return affected(res, err, "update", formsTable)
}

func (r *PGRepo) DeleteForm(ctx context.Context, ownerID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM custom_forms WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return affected(res, err, "delete", formsTable)
}

func affected(res sql.Result, err error, op, table string) error {
	if err != nil {
		return db.Write(op, table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) AddField(ctx context.Context, f Field) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		return insertField(ctx, tx, f)
	})
}

func (r *PGRepo) UpdateField(ctx context.Context, f Field) error {
	rules, err := encodeObject(f.ValidationRules)
	if err != nil {
		return err
	}
	options := f.Options
	if options == nil {
		options = []string{}
	}
	res, err := r.DB.ExecContext(ctx, `
UPDATE form_fields
SET field_type = $3, label = $4, placeholder = $5, is_required = $6, options = $7, validation_rules = $8
WHERE id = $1 AND form_id = $2`,
		f.ID, f.FormID, string(f.Type), f.Label, f.Placeholder, f.Required, pq.Array(options), rules)
	return affected(res, err, "update", fieldsTable)
}

func (r *PGRepo) DeleteField(ctx context.Context, formID, fieldID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM form_fields WHERE id = $1 AND form_id = $2`, fieldID, formID)
	return affected(res, err, "delete", fieldsTable)
}

func (r *PGRepo) ReorderFields(ctx context.Context, formID string, fieldIDs []string) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for i, id := range fieldIDs {
			res, err := tx.ExecContext(ctx, `UPDATE form_fields SET order_index = $3 WHERE id = $1 AND form_id = $2`, id, formID, i)
			if err := affected(res, err, "update", fieldsTable); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PGRepo) CreateSubmission(ctx context.Context, s Submission) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO form_submissions (id, form_id, candidate_name, candidate_email, status, submitted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, s.FormID, s.CandidateName, s.CandidateEmail, string(s.Status), s.SubmittedAt, s.UpdatedAt)
		if err != nil {
			return db.Write("insert", submissionsTable, err)
		}
		for _, resp := range s.Responses {
			_, err := tx.ExecContext(ctx, `
INSERT INTO form_field_responses (id, submission_id, field_id, value, file_key)
VALUES ($1, $2, $3, $4, $5)`,
				resp.ID, s.ID, resp.FieldID, resp.Value, sql.NullString{String: resp.FileKey, Valid: resp.FileKey != ""})
			if err != nil {
				return db.Write("insert", responsesTable, err)
			}
		}
		return nil
	})
}

const selectSubmission = `
SELECT id, form_id, candidate_name, candidate_email, status, submitted_at, updated_at
FROM form_submissions`

func scanSubmission(row rowScanner) (Submission, error) {
	var s Submission
	var status string
	if err := row.Scan(&s.ID, &s.FormID, &s.CandidateName, &s.CandidateEmail, &status, &s.SubmittedAt, &s.UpdatedAt); err != nil {
		return Submission{}, err
	}
	s.Status = SubmissionStatus(status)
	return s, nil
}

func (r *PGRepo) loadResponses(ctx context.Context, submissionID string) ([]Response, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, submission_id, field_id, value, file_key
FROM form_field_responses
WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, db.Read(responsesTable, err)
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		var resp Response
		var fileKey sql.NullString
		if err := rows.Scan(&resp.ID, &resp.SubmissionID, &resp.FieldID, &resp.Value, &fileKey); err != nil {
			return nil, db.Read(responsesTable, err)
		}
		resp.FileKey = fileKey.String
		out = append(out, resp)
	}
	return out, db.Read(responsesTable, rows.Err())
}

func (r *PGRepo) GetSubmission(ctx context.Context, id string) (Submission, error) {
	s, err := scanSubmission(r.DB.QueryRowContext(ctx, selectSubmission+"\nWHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, db.Read(submissionsTable, err)
	}
	if s.Responses, err = r.loadResponses(ctx, s.ID); err != nil {
		return Submission{}, err
	}
	return s, nil
}

func (r *PGRepo) ListSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	rows, err := r.DB.QueryContext(ctx, selectSubmission+`
WHERE form_id = $1
ORDER BY submitted_at DESC`, formID)
	if err != nil {
		return nil, db.Read(submissionsTable, err)
	}
	var out []Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			rows.Close()
			return nil, db.Read(submissionsTable, err)
		}
		out = append(out, s)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, db.Read(submissionsTable, err)
	}
	for i := range out {
		if out[i].Responses, err = r.loadResponses(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateSubmissionStatus overwrites the status without a version check.
func (r *PGRepo) UpdateSubmissionStatus(ctx context.Context, id string, status SubmissionStatus, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE form_submissions SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	return affected(res, err, "update", submissionsTable)
}
