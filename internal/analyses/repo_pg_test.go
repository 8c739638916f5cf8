package analyses

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"recruitai-backend/internal/shared/storage/db"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &PGRepo{DB: conn}, mock
}

var screeningColumns = []string{
	"id", "recruiter_id", "file_name", "file_key", "job_role", "job_description",
	"candidate_name", "candidate_email", "score", "analysis_raw", "analysis_json", "incomplete", "uploaded_at",
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	score := 82
	s := Screening{
		ID:            "scr-1",
		RecruiterID:   "rec-1",
		FileName:      "jane.pdf",
		FileKey:       "rec-1/abc_jane.pdf",
		JobRole:       "Backend",
		CandidateName: "Jane",
		Score:         &score,
		AnalysisRaw:   "{}",
		Incomplete:    true,
		UploadedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO resume_screened").
		WithArgs(
			s.ID, s.RecruiterID, s.FileName, s.FileKey, s.JobRole, s.JobDescription,
			sqlmock.AnyArg(), // candidate_name
			sqlmock.AnyArg(), // candidate_email
			sqlmock.AnyArg(), // score
			s.AnalysisRaw,
			sqlmock.AnyArg(), // analysis_json
			true,
			s.UploadedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateWrapsWriteError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO resume_screened").WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), Screening{ID: "scr-1"})
	var writeErr *db.WriteError
	if !errors.As(err, &writeErr) || writeErr.Table != "resume_screened" {
		t.Fatalf("expected *db.WriteError, got %v", err)
	}
}

func TestPGRepoGetDecodesAnalysis(t *testing.T) {
	repo, mock := newMockRepo(t)
	uploaded := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(screeningColumns).AddRow(
		"scr-1", "rec-1", "jane.pdf", "key", "Backend", "",
		"Jane", nil, int64(70), "raw", []byte(`{"overall_match":{"score":70}}`), true, uploaded,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM resume_screened")).
		WithArgs("scr-1", "rec-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "rec-1", "scr-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score == nil || *got.Score != 70 || got.CandidateEmail != "" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.Analysis.OverallMatch == nil || len(got.Missing) != 6 {
		t.Fatalf("analysis not decoded: %+v", got.Analysis)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM resume_screened").WillReturnRows(sqlmock.NewRows(screeningColumns))

	if _, err := repo.Get(context.Background(), "rec-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM resume_screened").
		WithArgs("scr-1", "rec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "rec-1", "scr-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
