package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
)

const maxTitleLength = 80

// PanelSnapshot describes one exported panel. It is written next to the PNG
// as the descriptor file.
type PanelSnapshot struct {
	Dashboard    string    `json:"dashboard"`
	DashboardUID string    `json:"dashboard_uid"`
	PanelID      int       `json:"panel_id"`
	PanelTitle   string    `json:"panel_title"`
	PanelType    string    `json:"panel_type"`
	Description  string    `json:"description,omitempty"`
	Datasource   string    `json:"datasource,omitempty"`
	Queries      []string  `json:"queries,omitempty"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	ExportedAt   time.Time `json:"exported_at"`
	ImageFile    string    `json:"image_file"`

	// DescriptorFile is the base name of the descriptor itself
	DescriptorFile string `json:"-"`
}

// SliceDashboard renders every panel of a dashboard for [from, to] into dir
// as <uid>_<panel>_<title>.png plus a .json descriptor. A failing panel is
// logged and skipped. Snapshots keep dashboard panel order.
func (c *Client) SliceDashboard(ctx context.Context, uid string, from, to time.Time, dir string) ([]PanelSnapshot, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("invalid time range %s - %s", from, to)
	}
	dash, err := c.Dashboard(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	panels := Flatten(dash.Panels)
	results := make([]*PanelSnapshot, len(panels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, p := range panels {
		if p.ID == 0 {
			continue
		}
		g.Go(func() error {
			snap, err := c.exportPanel(gctx, dash, p, from, to, dir)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("grafana panel export failed",
					"dashboard", uid,
					"panel_id", p.ID,
					"error", err)
				return nil
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []PanelSnapshot
	for _, snap := range results {
		if snap != nil {
			out = append(out, *snap)
		}
	}
	c.logger.Info("grafana dashboard exported",
		"dashboard", uid,
		"panels", len(panels),
		"exported", len(out))
	return out, nil
}

func (c *Client) exportPanel(ctx context.Context, dash *Dashboard, p Panel, from, to time.Time, dir string) (*PanelSnapshot, error) {
	png, err := c.RenderPanel(ctx, dash.UID, p.ID, from, to)
	if err != nil {
		return nil, err
	}

	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("panel_%d", p.ID)
	}
	stem := fmt.Sprintf("%s_%d_%s", dash.UID, p.ID, SafeTitle(title))

	snap := &PanelSnapshot{
		Dashboard:      dash.Title,
		DashboardUID:   dash.UID,
		PanelID:        p.ID,
		PanelTitle:     title,
		PanelType:      p.Type,
		Description:    p.Description,
		Datasource:     DatasourceName(p.Datasource),
		From:           from.UTC(),
		To:             to.UTC(),
		ExportedAt:     c.now().UTC(),
		ImageFile:      stem + ".png",
		DescriptorFile: stem + ".json",
	}
	for _, t := range p.Targets {
		if expr := t.Expression(); expr != "" {
			snap.Queries = append(snap.Queries, expr)
		}
		if snap.Datasource == "" {
			snap.Datasource = DatasourceName(t.Datasource)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, snap.ImageFile), png, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write panel image: %w", err)
	}
	desc, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, snap.DescriptorFile), desc, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write panel descriptor: %w", err)
	}
	return snap, nil
}

// SafeTitle keeps letters, digits, spaces, '-' and '_' of a panel title and
// caps its length
func SafeTitle(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxTitleLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		n++
	}
	return b.String()
}
