package jira

import (
	"time"

	"go.uber.org/zap"

	"github.com/seaward/assetctl/config"
)

// Client is the high-level asset client: transport, schema cache and
// attribute mapper behind one façade. Safe for concurrent use.
type Client struct {
	transport *Transport
	schemas   *SchemaCache
	snapshots *SnapshotStore
	mapper    Mapper
	logger    *zap.SugaredLogger
}

// NewClient builds a client from configuration. The on-disk snapshot store
// is best-effort: if it cannot be opened the client runs without a warm
// start and logs why.
func NewClient(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	transport := NewTransport(TransportConfig{
		Email:             cfg.Jira.Email,
		APIToken:          cfg.Jira.APIToken,
		Timeout:           time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.HTTP.MaxRetries,
		RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
	}, logger)

	var snapshots *SnapshotStore
	staleAfter := time.Duration(cfg.Cache.StaleAfterHours) * time.Hour
	store, err := OpenSnapshotStore(cfg.SnapshotPath(), staleAfter)
	if err != nil {
		logger.Warnw("Schema snapshot store unavailable, continuing without warm start",
			"path", cfg.SnapshotPath(), "error", err)
	} else {
		snapshots = store
	}

	return &Client{
		transport: transport,
		schemas:   NewSchemaCache(transport, cfg.Jira.Site, cfg.Jira.Schema, snapshots, logger),
		snapshots: snapshots,
		logger:    logger,
	}
}

// NewClientWithTransport wires a client over an existing transport and
// schema cache, for tests.
func NewClientWithTransport(transport *Transport, schemas *SchemaCache, logger *zap.SugaredLogger) *Client {
	return &Client{
		transport: transport,
		schemas:   schemas,
		logger:    logger,
	}
}

// Schemas exposes the schema cache, for cache refresh operations.
func (c *Client) Schemas() *SchemaCache {
	return c.schemas
}

// Close releases client resources.
func (c *Client) Close() error {
	if c.snapshots != nil {
		return c.snapshots.Close()
	}
	return nil
}
