package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

var _ repository.SubmissionRepository = (*DB)(nil)

// CreateSubmission assigns an id and creation time and inserts s. The problem
// must exist.
func (db *DB) CreateSubmission(ctx context.Context, s *model.Submission) error {
	s.ID = xid.New().String()
	s.CreatedAt = time.Now().UTC()
	if s.Cases == nil {
		s.Cases = []model.CaseResult{}
	}
	cases, err := json.Marshal(s.Cases)
	if err != nil {
		return fmt.Errorf("sqlite: encoding cases: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO submissions (id, problem_id, code, status, verdict, passed, total, cases, error, created_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProblemID, s.Code, string(s.Status), string(s.Verdict), s.Passed, s.Total,
		string(cases), s.Error, s.CreatedAt, nullTime(s.FinishedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return apperror.NotFound("problem", s.ProblemID)
		}
		return fmt.Errorf("sqlite: creating submission: %w", err)
	}
	return nil
}

func (db *DB) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, problem_id, code, status, verdict, passed, total, cases, error, created_at, finished_at
		 FROM submissions
		 WHERE id = ?`,
		id,
	)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("submission", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting submission %s: %w", id, err)
	}
	return s, nil
}

// UpdateSubmission stores the judging progress and outcome of s.
func (db *DB) UpdateSubmission(ctx context.Context, s *model.Submission) error {
	cases, err := json.Marshal(s.Cases)
	if err != nil {
		return fmt.Errorf("sqlite: encoding cases: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, verdict = ?, passed = ?, total = ?, cases = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(s.Status), string(s.Verdict), s.Passed, s.Total, string(cases), s.Error,
		nullTime(s.FinishedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating submission %s: %w", s.ID, err)
	}
	return expectOneRow(result, "submission", s.ID)
}

func (db *DB) ListSubmissions(ctx context.Context, problemID string, opts repository.ListOptions) ([]model.Submission, error) {
	limit, offset := page(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, problem_id, code, status, verdict, passed, total, cases, error, created_at, finished_at
		 FROM submissions
		 WHERE problem_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		problemID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing submissions: %w", err)
	}
	defer rows.Close()

	list := make([]model.Submission, 0, limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning submission row: %w", err)
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating submissions: %w", err)
	}
	return list, nil
}

func scanSubmission(sc scanner) (*model.Submission, error) {
	var (
		s                      model.Submission
		status, verdict, cases string
		finished               sql.NullTime
	)
	err := sc.Scan(&s.ID, &s.ProblemID, &s.Code, &status, &verdict, &s.Passed, &s.Total,
		&cases, &s.Error, &s.CreatedAt, &finished)
	if err != nil {
		return nil, err
	}
	s.Status = model.SubmissionStatus(status)
	s.Verdict = model.Verdict(verdict)
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(cases), &s.Cases); err != nil {
		return nil, fmt.Errorf("decoding cases of %s: %w", s.ID, err)
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
