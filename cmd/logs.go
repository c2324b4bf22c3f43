package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridopt/api/advances"
	"github.com/kilianp07/gridopt/app"
	"github.com/kilianp07/gridopt/core/dispatch/logging"
)

var logsQuery struct {
	model  string
	runID  string
	status string
	since  time.Duration
	serve  string
	token  string
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the advance log store",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsQuery.model, "model", "", "filter by model name")
	logsCmd.Flags().StringVar(&logsQuery.runID, "run", "", "filter by advance run id")
	logsCmd.Flags().StringVar(&logsQuery.status, "status", "", "filter by status (ok, failed)")
	logsCmd.Flags().DurationVar(&logsQuery.since, "since", 0, "only records newer than this duration")
	logsCmd.Flags().StringVar(&logsQuery.serve, "serve", "", "serve GET /api/advances/logs on this address instead of printing")
	logsCmd.Flags().StringVar(&logsQuery.token, "token", "", "bearer token required by the HTTP endpoint")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, flush, err := loadConfig()
	if err != nil {
		return err
	}
	defer flush()
	store, err := app.NewLogStore(cfg.Logging)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("advance logging is disabled")
	}
	defer func() { _ = store.Close() }()

	if logsQuery.serve != "" {
		return serveLogs(store, logsQuery.serve, logsQuery.token)
	}

	q := logging.LogQuery{Model: logsQuery.model, RunID: logsQuery.runID, Status: logsQuery.status}
	if logsQuery.since > 0 {
		q.Start = time.Now().Add(-logsQuery.since)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODEL\tT\tSTATUS\tOBJECTIVE\tVARS\tCONS\tDURATION_MS\tERROR")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.4g\t%d\t%d\t%.1f\t%s\n",
			r.Timestamp.Format(time.RFC3339), r.Model, r.T, r.Status, r.Objective,
			r.Variables, r.Constraints, r.DurationMS, r.Error)
	}
	return tw.Flush()
}

func serveLogs(store logging.LogStore, addr, token string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	mux := http.NewServeMux()
	mux.Handle("/api/advances/logs", advances.NewLogHandler(store, token))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
