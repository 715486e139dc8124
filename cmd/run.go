package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"mend/internal/app"
	"mend/internal/engine"
	"mend/internal/healing"
)

// errTestsFailed signals the suite completed with failures; Execute maps it
// to ExitCodeTestsFailed.
var errTestsFailed = errors.New("tests failed")

// runQuiet disables the progress spinner, for CI and scripting.
var runQuiet bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured test suite with healing",
	Long: `Runs every test in the configured suite. Failed tests are routed through
the healing pipeline and re-run after each confident heal. The command exits
with code 2 when any test stays failed.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Suite.Tests) == 0 {
		return fmt.Errorf("no tests configured; add tests under suite.tests in the config file")
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
	defer application.Stop(context.Background())

	var s *spinner.Spinner
	if !runQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Running %d tests...", len(cfg.Suite.Tests))
		s.Start()
	}

	reports, err := application.RunSuite(ctx)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	printReports(reports)
	printHealingStats(application.Coordinator().Stats())

	if summary := engine.Summarize(reports); summary.Failed > 0 {
		return errTestsFailed
	}
	return nil
}

// printReports renders the per-test outcome table.
func printReports(reports []engine.TestReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Test", "Status", "Heal Rounds", "Confidence", "Duration"})

	for _, report := range reports {
		confidence := ""
		if n := len(report.HealingAttempts); n > 0 {
			confidence = fmt.Sprintf("%.2f", report.HealingAttempts[n-1].Confidence)
		}
		t.AppendRow(table.Row{
			report.TestID,
			statusCell(report),
			len(report.HealingAttempts),
			confidence,
			report.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
}

func statusCell(report engine.TestReport) string {
	switch {
	case report.Passed && report.Healed:
		return text.FgYellow.Sprint("HEALED")
	case report.Passed:
		return text.FgGreen.Sprint("PASS")
	default:
		return text.FgRed.Sprint("FAIL")
	}
}

func printHealingStats(stats healing.Stats) {
	if stats.TotalAttempts == 0 {
		return
	}
	fmt.Printf("\nHealing: %d/%d calls healed (%.0f%%)\n",
		stats.SuccessfulAttempts, stats.TotalAttempts, stats.SuccessRate*100)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Disable the progress spinner")
}
