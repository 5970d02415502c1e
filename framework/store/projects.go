package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GrafanaSource is one Grafana instance a project exports panels from
type GrafanaSource struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

// K8sConfig tells the collector how to reach the project's cluster: a
// kubeconfig (base64 or path) or a server URL with a bearer token
type K8sConfig struct {
	KubeconfigBase64   string `json:"kubeconfigBase64,omitempty"`
	KubeconfigPath     string `json:"kubeconfigPath,omitempty"`
	Server             string `json:"server,omitempty"`
	Token              string `json:"token,omitempty"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify,omitempty"`
	Namespace          string `json:"namespace,omitempty"`
	LabelSelector      string `json:"labelSelector,omitempty"`
}

// Project is a tested system with its model backend and data sources
type Project struct {
	ID             int64
	Name           string
	Description    string
	Version        string
	LLMType        string
	LLMModel       string
	LLMAPIKey      string
	LLMBaseURL     string
	GrafanaSources []GrafanaSource
	K8s            *K8sConfig
	CreatedAt      time.Time
}

const projectColumns = `id, name, description, version, llm_type, llm_model, llm_api_key, llm_base_url,
	grafana_sources, k8s_config, created_at`

// CreateProject inserts a project
func (s *Store) CreateProject(ctx context.Context, p Project) (*Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("project name cannot be empty")
	}
	if p.LLMType == "" {
		p.LLMType = "ollama"
	}
	sources, err := marshalJSON(p.GrafanaSources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grafana sources: %w", err)
	}
	var k8s sql.NullString
	if p.K8s != nil {
		if k8s, err = marshalJSON(p.K8s); err != nil {
			return nil, fmt.Errorf("failed to marshal k8s config: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, description, version, llm_type, llm_model, llm_api_key, llm_base_url, grafana_sources, k8s_config)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, nullIfEmpty(p.Description), nullIfEmpty(p.Version), p.LLMType, nullIfEmpty(p.LLMModel),
		nullIfEmpty(p.LLMAPIKey), nullIfEmpty(p.LLMBaseURL), sources, k8s,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project %s: %w", p.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

// GetProject loads a project by id
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetProjectByName loads a project by its unique name
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, strings.TrimSpace(name))
	return scanProject(row)
}

// ListProjects returns all projects ordered by id
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*Project, error) {
	var (
		p                               Project
		desc, version, model, key, base sql.NullString
		sources, k8s                    sql.NullString
		createdAt                       int64
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &version, &p.LLMType, &model, &key, &base, &sources, &k8s, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	p.Description = desc.String
	p.Version = version.String
	p.LLMModel = model.String
	p.LLMAPIKey = key.String
	p.LLMBaseURL = base.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := unmarshalJSON(sources, &p.GrafanaSources); err != nil {
		return nil, fmt.Errorf("failed to decode grafana sources of project %d: %w", p.ID, err)
	}
	if k8s.Valid {
		p.K8s = &K8sConfig{}
		if err := unmarshalJSON(k8s, p.K8s); err != nil {
			return nil, fmt.Errorf("failed to decode k8s config of project %d: %w", p.ID, err)
		}
	}
	return &p, nil
}
