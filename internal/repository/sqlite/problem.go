package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/coderunner/internal/apperror"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/repository"
)

var _ repository.ProblemRepository = (*DB)(nil)

// Test cases are stored as a JSON array in one column; they are always read
// and written together with their problem.

// UpsertProblem inserts p or replaces every field of the existing row with
// the same id. The original insertion order is kept for listing.
func (db *DB) UpsertProblem(ctx context.Context, p *model.Problem) error {
	cases, err := json.Marshal(p.TestCases)
	if err != nil {
		return fmt.Errorf("sqlite: encoding test cases for %s: %w", p.ID, err)
	}
	now := time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO problems (id, title, description, difficulty, category, initial_code, test_cases, hint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			difficulty = excluded.difficulty,
			category = excluded.category,
			initial_code = excluded.initial_code,
			test_cases = excluded.test_cases,
			hint = excluded.hint,
			updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Description, string(p.Difficulty), p.Category, p.InitialCode,
		string(cases), p.Hint, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting problem %s: %w", p.ID, err)
	}
	return nil
}

func (db *DB) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, title, description, difficulty, category, initial_code, test_cases, hint
		 FROM problems
		 WHERE id = ?`,
		id,
	)
	p, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("problem", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting problem %s: %w", id, err)
	}
	return p, nil
}

// ListProblems returns matching problems in insertion order.
func (db *DB) ListProblems(ctx context.Context, filter repository.ProblemFilter) ([]model.Problem, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, `title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if filter.Difficulty != "" {
		where = append(where, `difficulty = ?`)
		args = append(args, string(filter.Difficulty))
	}

	query := `SELECT id, title, description, difficulty, category, initial_code, test_cases, hint FROM problems`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY rowid`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing problems: %w", err)
	}
	defer rows.Close()

	var list []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating problems: %w", err)
	}
	return list, nil
}

// DeleteProblem removes the problem and, by cascade, its submissions.
func (db *DB) DeleteProblem(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM problems WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting problem %s: %w", id, err)
	}
	return expectOneRow(result, "problem", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProblem(s scanner) (*model.Problem, error) {
	var (
		p          model.Problem
		difficulty string
		cases      string
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &difficulty, &p.Category, &p.InitialCode, &cases, &p.Hint); err != nil {
		return nil, err
	}
	p.Difficulty = model.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(cases), &p.TestCases); err != nil {
		return nil, fmt.Errorf("decoding test cases of %s: %w", p.ID, err)
	}
	return &p, nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
