// Package grafana exports dashboard panels for a test window: a PNG render
// per panel plus a JSON descriptor the report model can read.
package grafana

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redhat/perf-tests-reporter/framework/retry"
)

// Defaults
const (
	DefaultTimeout      = 60 * time.Second
	DefaultRenderWidth  = 1200
	DefaultRenderHeight = 400
	DefaultConcurrency  = 4
	maxErrorBody        = 512
)

// Client is a bearer-token Grafana REST client
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	logger      *slog.Logger
	retryOpts   []retry.Option
	concurrency int
	width       int
	height      int
	now         func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithInsecureSkipVerify disables TLS verification on the default client
func WithInsecureSkipVerify() Option {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry sets the retry options used for GET calls
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryOpts = opts
	}
}

// WithConcurrency bounds the number of panels rendered at once
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRenderSize sets the rendered panel size in pixels
func WithRenderSize(width, height int) Option {
	return func(c *Client) {
		c.width = width
		c.height = height
	}
}

// NewClient creates a client for the Grafana instance at baseURL
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("grafana URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid grafana URL %s: %w", baseURL, err)
	}

	c := &Client{
		baseURL:     baseURL,
		token:       token,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      slog.Default(),
		retryOpts:   []retry.Option{retry.WithMaxAttempts(3)},
		concurrency: DefaultConcurrency,
		width:       DefaultRenderWidth,
		height:      DefaultRenderHeight,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DashboardHit is one search result
type DashboardHit struct {
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	FolderTitle string   `json:"folderTitle,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Dashboard is the part of a dashboard model the exporter needs
type Dashboard struct {
	UID    string  `json:"uid"`
	Title  string  `json:"title"`
	Panels []Panel `json:"panels"`
}

// Panel is a dashboard panel. Collapsed rows carry their children in Panels.
type Panel struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Datasource  json.RawMessage `json:"datasource,omitempty"`
	Targets     []Target        `json:"targets,omitempty"`
	Panels      []Panel         `json:"panels,omitempty"`
}

// Target is a panel query
type Target struct {
	RefID      string          `json:"refId"`
	Expr       string          `json:"expr,omitempty"`
	Query      string          `json:"query,omitempty"`
	RawSQL     string          `json:"rawSql,omitempty"`
	Datasource json.RawMessage `json:"datasource,omitempty"`
}

// Expression returns the query text of a target, whichever field holds it
func (t Target) Expression() string {
	for _, s := range []string{t.Expr, t.Query, t.RawSQL} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// DatasourceName renders a datasource reference, which Grafana stores either
// as a name string or as a {type, uid} object
func DatasourceName(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}
	var ref struct {
		Type string `json:"type"`
		UID  string `json:"uid"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	switch {
	case ref.Type != "" && ref.UID != "":
		return ref.Type + "/" + ref.UID
	case ref.UID != "":
		return ref.UID
	default:
		return ref.Type
	}
}

// SearchDashboards lists dashboards matching query. An empty query lists all.
func (c *Client) SearchDashboards(ctx context.Context, query string) ([]DashboardHit, error) {
	params := url.Values{}
	params.Set("type", "dash-db")
	if query != "" {
		params.Set("query", query)
	}
	var hits []DashboardHit
	if err := c.getJSON(ctx, "/api/search?"+params.Encode(), &hits); err != nil {
		return nil, fmt.Errorf("failed to search dashboards: %w", err)
	}
	return hits, nil
}

// Dashboard fetches a dashboard by uid
func (c *Client) Dashboard(ctx context.Context, uid string) (*Dashboard, error) {
	var body struct {
		Dashboard Dashboard `json:"dashboard"`
	}
	if err := c.getJSON(ctx, "/api/dashboards/uid/"+url.PathEscape(uid), &body); err != nil {
		return nil, fmt.Errorf("failed to get dashboard %s: %w", uid, err)
	}
	if body.Dashboard.UID == "" {
		body.Dashboard.UID = uid
	}
	return &body.Dashboard, nil
}

// Panels returns the renderable panels of a dashboard. Rows are flattened
// into their children and dropped.
func (c *Client) Panels(ctx context.Context, uid string) ([]Panel, error) {
	dash, err := c.Dashboard(ctx, uid)
	if err != nil {
		return nil, err
	}
	return Flatten(dash.Panels), nil
}

// Flatten drops row panels, keeping the children of collapsed rows
func Flatten(panels []Panel) []Panel {
	var out []Panel
	for _, p := range panels {
		if p.Type == "row" {
			out = append(out, Flatten(p.Panels)...)
			continue
		}
		out = append(out, p)
	}
	return out
}

// RenderPanel renders one panel for [from, to] as PNG
func (c *Client) RenderPanel(ctx context.Context, uid string, panelID int, from, to time.Time) ([]byte, error) {
	params := url.Values{}
	params.Set("panelId", strconv.Itoa(panelID))
	params.Set("from", strconv.FormatInt(from.UnixMilli(), 10))
	params.Set("to", strconv.FormatInt(to.UnixMilli(), 10))
	params.Set("width", strconv.Itoa(c.width))
	params.Set("height", strconv.Itoa(c.height))

	data, err := retry.DoWithData(ctx, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, "/render/d-solo/"+url.PathEscape(uid)+"?"+params.Encode())
	}, c.retryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to render panel %d of %s: %w", panelID, uid, err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	data, err := retry.DoWithData(ctx, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, path)
	}, c.retryOptions()...)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

func (c *Client) retryOptions() []retry.Option {
	opts := append([]retry.Option{}, c.retryOpts...)
	return append(opts,
		retry.WithRetryIf(retry.IsTransient),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.logger.Warn("grafana request failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}),
	)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &retry.StatusError{Method: http.MethodGet, URL: path, StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}
