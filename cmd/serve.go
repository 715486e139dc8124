package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mend/internal/app"
	"mend/internal/config"
	"mend/internal/metrics"
	"mend/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the healing engine over MCP stdio",
	Long: `Starts the healing engine as an MCP server on stdio so AI assistants can
classify failures, trigger heals, and inspect strategies and statistics.

When metrics are enabled in the config, a Prometheus endpoint is served on
the configured port. The config file is watched while serving: edits to
healing policy, the suite, or preferences take effect without a restart.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(cfg.Metrics.Port)
		group.Go(func() error { return server.Run(ctx) })
	}

	configPath := rootConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	if watcher, err := config.NewWatcher(configPath, application.ApplyConfig); err != nil {
		logging.Warn("Serve", "Config watching disabled: %v", err)
	} else {
		group.Go(func() error {
			watcher.Run(ctx)
			return nil
		})
	}

	group.Go(func() error {
		logging.Info("Serve", "MCP server listening on stdio")
		return application.MCPServer(GetVersion()).Start(ctx)
	})

	err = group.Wait()
	application.Stop(cmd.Context())
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
