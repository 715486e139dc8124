package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"mend/internal/config"
	"mend/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeTestsFailed indicates the suite ran but at least one test
	// stayed failed after healing.
	ExitCodeTestsFailed = 2
)

var (
	// rootConfigPath overrides the default config file location.
	rootConfigPath string
	// rootDebug forces debug logging regardless of the configured level.
	rootDebug bool
)

// rootCmd represents the base command for the mend application.
var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "Run test suites that heal themselves",
	Long: `mend executes a configured test suite and, when a test fails, routes the
failure through a pipeline of healing strategies: the failure is classified,
candidate strategies are tried under fault isolation, and the test is re-run
when a strategy reports a confident fix.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mend version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errTestsFailed) {
			os.Exit(ExitCodeTestsFailed)
		}
		os.Exit(ExitCodeError)
	}
}

// loadConfig loads the config file honoring the --config flag and
// initializes logging. Logs always go to stderr so stdout stays clean for
// command output and the MCP stdio transport.
func loadConfig() (*config.Config, error) {
	path := rootConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(cfg.Logging.Level)
	if rootDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "config file (default is ~/.config/mend/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
}
