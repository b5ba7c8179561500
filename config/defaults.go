package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Remote service defaults
	v.SetDefault("jira.schema", "Assets")

	// Transport defaults
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.requests_per_minute", 120)

	// Schema snapshot defaults
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.stale_after_hours", 24)

	// Buyout policy defaults (empty path = built-in table)
	v.SetDefault("policy.path", "")

	// Webhook server defaults
	v.SetDefault("webhook.host", "0.0.0.0")
	v.SetDefault("webhook.port", 8787)

	// Processing defaults
	v.SetDefault("process.workers", 1)
}

// BindSensitiveEnvVars binds credential values to environment variables so
// they never need to live in a config file on disk.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("jira.api_token", "ASSETCTL_JIRA_API_TOKEN", "JIRA_API_TOKEN")
	v.BindEnv("jira.email", "ASSETCTL_JIRA_EMAIL", "JIRA_EMAIL")
	v.BindEnv("jira.site", "ASSETCTL_JIRA_SITE", "JIRA_SITE_NAME")
	v.BindEnv("webhook.secret", "ASSETCTL_WEBHOOK_SECRET")
}
