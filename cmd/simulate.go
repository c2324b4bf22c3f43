package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridopt/app"
	"github.com/kilianp07/gridopt/core/events"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/pkg/export"
)

var (
	simulateSteps  int
	simulateFormat string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the configured scenario and print the committed schedule",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateSteps, "steps", "n", 0, "number of advances (overrides dispatch.steps)")
	simulateCmd.Flags().StringVarP(&simulateFormat, "format", "f", "table", "schedule output format: table, json or csv")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, flush, err := loadConfig()
	if err != nil {
		return err
	}
	defer flush()
	write, err := scheduleWriter(simulateFormat)
	if err != nil {
		return err
	}
	if simulateSteps > 0 {
		cfg.Dispatch.Steps = simulateSteps
	}

	sim, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sim.Close(); err != nil {
			logger.New("main").Errorf("simulation close: %v", err)
		}
	}()

	schedule, runErr := sim.Run(ctx)
	if err := write(cmd.OutOrStdout(), schedule); err != nil {
		return err
	}
	return runErr
}

func scheduleWriter(format string) (func(io.Writer, []events.CommittedValue) error, error) {
	switch format {
	case "table", "":
		return printSchedule, nil
	case "json":
		return export.WriteJSON, nil
	case "csv":
		return export.WriteCSV, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func printSchedule(w io.Writer, schedule []events.CommittedValue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "T\tPART\tVARIABLE\tVALUE"); err != nil {
		return err
	}
	for _, v := range schedule {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%.4g\n", v.T, v.Part, v.Variable, v.Value); err != nil {
			return err
		}
	}
	return tw.Flush()
}
