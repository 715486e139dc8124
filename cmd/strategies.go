package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mend/internal/app"
	"mend/internal/healing"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the registered healing strategies",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

func runStrategies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	printStrategies(application.Coordinator().Registry().Strategies())
	return nil
}

func printStrategies(strategies []healing.Strategy) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Version", "Failure Types"})

	for _, s := range strategies {
		types := make([]string, 0, len(s.SupportedFailureTypes()))
		for _, ft := range s.SupportedFailureTypes() {
			types = append(types, string(ft))
		}
		t.AppendRow(table.Row{s.Name(), s.Version(), strings.Join(types, ", ")})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
