package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// Client serves workspace searches and resource pages from a Store before
// asking the upstream client. Failed upstream calls are never cached, and a
// failing store only costs the lookup.
type Client struct {
	upstream catalog.Client
	store    Store
	ttl      time.Duration
	prefix   string
	logger   *slog.Logger
}

func NewClient(upstream catalog.Client, store Store, cfg Config) *Client {
	cfg.ApplyDefaults()
	return &Client{
		upstream: upstream,
		store:    store,
		ttl:      cfg.TTL,
		prefix:   cfg.KeyPrefix,
		logger:   slog.Default().With("component", "cache"),
	}
}

func (c *Client) SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error) {
	key := c.prefix + "ws:" + query
	var out []model.Workspace
	if c.lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := c.upstream.SearchWorkspaces(ctx, query)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, out)
	return out, nil
}

func (c *Client) ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error) {
	key := fmt.Sprintf("%sres:%s:%d:%d", c.prefix, workspaceID, page, pageSize)
	var out model.ResourcePage
	if c.lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := c.upstream.ListResources(ctx, workspaceID, page, pageSize)
	if err != nil {
		return model.ResourcePage{}, err
	}
	c.save(ctx, key, out)
	return out, nil
}

func (c *Client) lookup(ctx context.Context, key string, out interface{}) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Cache lookup failed", "key", key, "error", err)
		return false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (c *Client) save(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

var _ catalog.Client = (*Client)(nil)
