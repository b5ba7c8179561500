// Package config loads assetctl configuration from TOML files and the
// environment, in the precedence order system < user < project < env vars.
package config

import (
	"os"
	"path/filepath"

	"github.com/seaward/assetctl/errors"
)

// Config represents the assetctl configuration
type Config struct {
	Jira    JiraConfig    `mapstructure:"jira"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Policy  PolicyConfig  `mapstructure:"policy"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Process ProcessConfig `mapstructure:"process"`
}

// JiraConfig holds credentials and site for the remote Assets service
type JiraConfig struct {
	Site     string `mapstructure:"site"`      // e.g. "acme" or "acme.atlassian.net"
	Email    string `mapstructure:"email"`     // account email for basic auth
	APIToken string `mapstructure:"api_token"` // bound to ASSETCTL_JIRA_API_TOKEN
	Schema   string `mapstructure:"schema"`    // object schema name holding the assets
}

// HTTPConfig configures the transport layer
type HTTPConfig struct {
	TimeoutSeconds    int `mapstructure:"timeout_seconds"`
	MaxRetries        int `mapstructure:"max_retries"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// CacheConfig configures the on-disk schema snapshot store
type CacheConfig struct {
	Path            string `mapstructure:"path"`              // sqlite file; empty = ~/.assetctl/schema.db
	StaleAfterHours int    `mapstructure:"stale_after_hours"` // snapshots older than this count as misses
}

// PolicyConfig points at the buyout residual-percentage policy table
type PolicyConfig struct {
	Path string `mapstructure:"path"` // TOML policy file; empty = built-in table
}

// WebhookConfig configures the webhook receiver server
type WebhookConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Secret string `mapstructure:"secret"` // bound to ASSETCTL_WEBHOOK_SECRET
}

// ProcessConfig configures batch processing runs
type ProcessConfig struct {
	Workers int `mapstructure:"workers"` // bounded worker pool size for the update stage
}

// Validate checks that required values are present
func (c *Config) Validate() error {
	if c.Jira.Site == "" {
		return errors.New("jira.site is required (set it in assetctl.toml or ASSETCTL_JIRA_SITE)")
	}
	if c.Jira.Email == "" {
		return errors.New("jira.email is required")
	}
	if c.Jira.APIToken == "" {
		return errors.New("jira.api_token is required (set ASSETCTL_JIRA_API_TOKEN)")
	}
	return nil
}

// SnapshotPath returns the resolved path of the schema snapshot database.
func (c *Config) SnapshotPath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "schema.db"
	}
	return filepath.Join(home, ".assetctl", "schema.db")
}
