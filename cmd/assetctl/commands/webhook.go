package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seaward/assetctl/errors"
	"github.com/seaward/assetctl/jira"
	"github.com/seaward/assetctl/logger"
	"github.com/seaward/assetctl/pipeline"
	"github.com/seaward/assetctl/processor"
	"github.com/seaward/assetctl/webhook"
)

// WebhookCmd starts the webhook receiver server.
var WebhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Start the webhook receiver server",
	Long: `Start the HTTP server that receives asset events from the remote
service and processes the named asset immediately.

Callers authenticate with HTTP Basic auth, username "webhook" and the
configured secret as password. When a policy file is configured it is
watched and hot-reloaded on change.

The server runs until interrupted.`,
	RunE: runWebhook,
}

func runWebhook(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Webhook.Secret == "" {
		return errors.New("webhook.secret is required (set ASSETCTL_WEBHOOK_SECRET)")
	}

	policy, err := processor.Load(cfg.Policy.Path)
	if err != nil {
		return err
	}

	client := jira.NewClient(cfg, logger.Logger)
	defer client.Close()

	runner := pipeline.NewRunner(client, policy, logger.Logger)

	if cfg.Policy.Path != "" {
		watcher, err := webhook.NewPolicyWatcher(cfg.Policy.Path, logger.Logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		watcher.OnReload(runner.UpdatePolicy)
		watcher.Start()
	}

	server := webhook.NewServer(cfg.Webhook.Host, cfg.Webhook.Port, cfg.Webhook.Secret, runner, logger.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Infow("Shutting down webhook server", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
