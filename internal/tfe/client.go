// Package tfe is a client for the workspace and resource endpoints of the
// Terraform Enterprise v2 API.
package tfe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

const maxErrorBody = 64 << 10

// Client talks to a TFE v2 API.
type Client struct {
	baseURL      string
	token        string
	organization string
	timeout      time.Duration
	searchSize   int
	httpClient   *http.Client
	logger       *slog.Logger
}

// New creates a client from cfg. cfg is expected to be validated.
func New(cfg Config) *Client {
	cfg.ApplyDefaults()
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.Token,
		organization: cfg.Organization,
		timeout:      cfg.Timeout,
		searchSize:   cfg.SearchPageSize,
		httpClient:   &http.Client{},
		logger:       slog.Default().With("component", "tfe-client"),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SearchWorkspaces lists the organization's workspaces whose name contains query.
func (c *Client) SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error) {
	params := url.Values{}
	if query != "" {
		params.Set("search[name]", query)
	}
	params.Set("page[size]", strconv.Itoa(c.searchSize))
	path := "/organizations/" + url.PathEscape(c.organization) + "/workspaces"

	doc, err := c.get(ctx, "search_workspaces", path, params)
	if err != nil {
		return nil, err
	}

	out := make([]model.Workspace, 0, len(doc.Data))
	for _, obj := range doc.Data {
		out = append(out, model.WorkspaceFromAttributes(obj.ID, obj.Attributes))
	}
	return out, nil
}

// ListResources returns one page of a workspace's resources.
func (c *Client) ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error) {
	if workspaceID == "" {
		return model.ResourcePage{}, fmt.Errorf("%w: empty workspace id", model.ErrInvalidArgument)
	}
	params := url.Values{}
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(pageSize))
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/resources"

	doc, err := c.get(ctx, "list_resources", path, params)
	if err != nil {
		return model.ResourcePage{}, err
	}

	items := make([]model.Resource, 0, len(doc.Data))
	for _, obj := range doc.Data {
		items = append(items, model.Resource{ID: obj.ID, Type: obj.Type, Attributes: obj.Attributes})
	}
	out := model.ResourcePage{Items: items, PageSize: pageSize}
	if doc.Meta != nil && doc.Meta.Pagination != nil {
		p := doc.Meta.Pagination
		out.CurrentPage = p.CurrentPage
		out.TotalPages = p.TotalPages
		out.TotalCount = p.TotalCount
		if p.PageSize > 0 {
			out.PageSize = p.PageSize
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", MediaType)
	req.Header.Set("Content-Type", MediaType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamLatency.WithLabelValues(operation, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("tfe %s: %w", operation, model.WrapError(err))
	}
	defer resp.Body.Close()
	metrics.UpstreamLatency.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		c.logger.Debug("TFE request failed", "operation", operation, "status", resp.StatusCode, "error", err)
		return nil, err
	}

	var doc Document
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("tfe %s: failed to decode response: %w", operation, model.WrapError(err))
	}
	return &doc, nil
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusNotFound:
		return model.ErrNotFound
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var doc ErrorDocument
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Errors) > 0 {
		apiErr.Title = doc.Errors[0].Title
		apiErr.Detail = doc.Errors[0].Detail
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Detail = text
	}
	return apiErr
}

// IsAPIError reports whether err carries a TFE status error.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

var _ catalog.Client = (*Client)(nil)
