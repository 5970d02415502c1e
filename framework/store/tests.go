package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TestType classifies a load test
type TestType string

// Test types
const (
	TestMaxSearch       TestType = "max_search"
	TestMaxConfirmation TestType = "max_confirmation"
	TestReliability     TestType = "reliability"
	TestDestructive     TestType = "destructive"
)

// TestTypes lists every test type
var TestTypes = []TestType{TestMaxSearch, TestMaxConfirmation, TestReliability, TestDestructive}

// ParseTestType validates a test type string
func ParseTestType(s string) (TestType, error) {
	t := TestType(strings.TrimSpace(s))
	for _, known := range TestTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown test type %q", s)
}

// Status is the lifecycle state of a test record
type Status string

// Test statuses
const (
	StatusPending    Status = "pending"
	StatusCollecting Status = "collecting"
	StatusAnalyzing  Status = "analyzing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var statusTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusCollecting: struct{}{},
		StatusAnalyzing:  struct{}{},
	},
	StatusCollecting: {
		StatusPending:   struct{}{},
		StatusAnalyzing: struct{}{},
		StatusFailed:    struct{}{},
	},
	StatusAnalyzing: {
		StatusDone:   struct{}{},
		StatusFailed: struct{}{},
	},
	StatusDone: {
		StatusCollecting: struct{}{},
		StatusAnalyzing:  struct{}{},
	},
	StatusFailed: {
		StatusCollecting: struct{}{},
		StatusAnalyzing:  struct{}{},
	},
}

// IsValidStatusTransition reports whether a test may move from one status to another
func IsValidStatusTransition(from, to Status) bool {
	next, ok := statusTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// Test is one load test run of a project
type Test struct {
	ID           int64
	ProjectID    int64
	Type         TestType
	StartedAt    *time.Time
	EndedAt      *time.Time
	SystemPrompt string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
}

// TimeRange renders the test window, or "" when it is unknown
func (t *Test) TimeRange() string {
	if t.StartedAt == nil || t.EndedAt == nil {
		return ""
	}
	return t.StartedAt.UTC().Format(time.RFC3339) + " - " + t.EndedAt.UTC().Format(time.RFC3339)
}

const testColumns = `id, project_id, test_type, started_at, ended_at, system_prompt, status, error_message, created_at`

// CreateTest inserts a test in the pending status
func (s *Store) CreateTest(ctx context.Context, t Test) (*Test, error) {
	if _, err := ParseTestType(string(t.Type)); err != nil {
		return nil, err
	}
	if t.StartedAt != nil && t.EndedAt != nil && t.EndedAt.Before(*t.StartedAt) {
		return nil, fmt.Errorf("test end %s is before start %s", t.EndedAt, t.StartedAt)
	}
	if _, err := s.GetProject(ctx, t.ProjectID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tests (project_id, test_type, started_at, ended_at, system_prompt, status) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ProjectID, string(t.Type), nullTime(t.StartedAt), nullTime(t.EndedAt), nullIfEmpty(t.SystemPrompt), string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert test: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetTest(ctx, id)
}

// GetTest loads a test by id
func (s *Store) GetTest(ctx context.Context, id int64) (*Test, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM tests WHERE id = ?`, id)
	return scanTest(row)
}

// ListTests returns the tests of a project, or of all projects when projectID is zero
func (s *Store) ListTests(ctx context.Context, projectID int64) ([]*Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests`
	var args []any
	if projectID != 0 {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// SetTestWindow updates the start and end of a test
func (s *Store) SetTestWindow(ctx context.Context, id int64, start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("test end %s is before start %s", end, start)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE tests SET started_at = ?, ended_at = ? WHERE id = ?`, start.Unix(), end.Unix(), id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrTestNotFound)
}

// TransitionTest moves a test to a new status. errMsg is stored for the
// failed status and cleared otherwise.
func (s *Store) TransitionTest(ctx context.Context, id int64, to Status, errMsg string) error {
	t, err := s.GetTest(ctx, id)
	if err != nil {
		return err
	}
	if !IsValidStatusTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, to)
	}
	if to != StatusFailed {
		errMsg = ""
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status = ?, error_message = ? WHERE id = ? AND status = ?`,
		string(to), nullIfEmpty(errMsg), id, string(t.Status),
	)
	if err != nil {
		return err
	}
	return expectRow(res, ErrStatusConflict)
}

// DeleteTest removes a test with its artifacts and report rows
func (s *Store) DeleteTest(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrTestNotFound)
}

func scanTest(row scanner) (*Test, error) {
	var (
		t              Test
		testType       string
		status         string
		started, ended sql.NullInt64
		prompt, errMsg sql.NullString
		createdAt      int64
	)
	if err := row.Scan(&t.ID, &t.ProjectID, &testType, &started, &ended, &prompt, &status, &errMsg, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	t.Type = TestType(testType)
	t.Status = Status(status)
	t.StartedAt = timePtr(started)
	t.EndedAt = timePtr(ended)
	t.SystemPrompt = prompt.String
	t.ErrorMessage = errMsg.String
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}

func expectRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
