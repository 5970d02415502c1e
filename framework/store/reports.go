package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ArtifactSnapshot records an artifact as it was when a report was produced
type ArtifactSnapshot struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Used        bool   `json:"used"`
}

// Report is the stored outcome of a successful analysis. A test has at most one.
type Report struct {
	ID            int64
	TestID        int64
	Text          string
	TextPath      string
	PDFPath       string
	ArtifactsUsed []ArtifactSnapshot
	CreatedAt     time.Time
}

// UpsertReport stores the report of a test, replacing any previous one
func (s *Store) UpsertReport(ctx context.Context, r Report) (*Report, error) {
	used, err := marshalJSON(r.ArtifactsUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifacts snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (test_id, report_text, text_path, pdf_path, artifacts_used) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(test_id) DO UPDATE SET
		   report_text = excluded.report_text,
		   text_path = excluded.text_path,
		   pdf_path = excluded.pdf_path,
		   artifacts_used = excluded.artifacts_used,
		   created_at = unixepoch()`,
		r.TestID, r.Text, nullIfEmpty(r.TextPath), nullIfEmpty(r.PDFPath), used,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store report for test %d: %w", r.TestID, err)
	}
	return s.GetReport(ctx, r.TestID)
}

// GetReport loads the report of a test
func (s *Store) GetReport(ctx context.Context, testID int64) (*Report, error) {
	var (
		r                   Report
		textPath, pdf, used sql.NullString
		createdAt           int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, test_id, report_text, text_path, pdf_path, artifacts_used, created_at FROM reports WHERE test_id = ?`,
		testID,
	).Scan(&r.ID, &r.TestID, &r.Text, &textPath, &pdf, &used, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	r.TextPath = textPath.String
	r.PDFPath = pdf.String
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := unmarshalJSON(used, &r.ArtifactsUsed); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts snapshot of report %d: %w", r.ID, err)
	}
	return &r, nil
}
