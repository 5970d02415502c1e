package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/artifact"
)

// Artifact is a stored piece of evidence attached to a test. FilePath is
// relative to the artifact storage root.
type Artifact struct {
	ID          int64
	TestID      int64
	Kind        artifact.Kind
	DisplayName string
	FilePath    string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Label returns the provenance label used in reports
func (a *Artifact) Label() string {
	return artifact.LabelFor(a.ID, a.DisplayName, a.FilePath, a.Kind)
}

const artifactColumns = `id, test_id, kind, display_name, file_path, metadata, created_at`

// AddArtifact inserts an artifact
func (s *Store) AddArtifact(ctx context.Context, a Artifact) (*Artifact, error) {
	if _, err := artifact.ParseKind(string(a.Kind)); err != nil {
		return nil, err
	}
	meta, err := marshalJSON(a.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact metadata: %w", err)
	}
	if len(a.Metadata) == 0 {
		meta = sql.NullString{}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (test_id, kind, display_name, file_path, metadata) VALUES (?, ?, ?, ?, ?)`,
		a.TestID, string(a.Kind), nullIfEmpty(a.DisplayName), nullIfEmpty(a.FilePath), meta,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert artifact for test %d: %w", a.TestID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetArtifact(ctx, id)
}

// GetArtifact loads an artifact by id
func (s *Store) GetArtifact(ctx context.Context, id int64) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	return scanArtifact(row)
}

// ListArtifacts returns a test's artifacts in ascending id order
func (s *Store) ListArtifacts(ctx context.Context, testID int64) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE test_id = ? ORDER BY id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// DeleteArtifact removes an artifact row
func (s *Store) DeleteArtifact(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, ErrArtifactNotFound)
}

func scanArtifact(row scanner) (*Artifact, error) {
	var (
		a                Artifact
		kind             string
		name, path, meta sql.NullString
		createdAt        int64
	)
	if err := row.Scan(&a.ID, &a.TestID, &kind, &name, &path, &meta, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, err
	}
	a.Kind = artifact.Kind(kind)
	a.DisplayName = name.String
	a.FilePath = path.String
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := unmarshalJSON(meta, &a.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of artifact %d: %w", a.ID, err)
	}
	return &a, nil
}
