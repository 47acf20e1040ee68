package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"CashNudge/internal/recorder"

	"github.com/spf13/cobra"
)

var flagRunsLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the nightly cash check once and print the result",
	RunE:  runBatch,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent nightly runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&flagRunsLimit, "limit", "n", 10, "Number of runs to show")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.scheduler.RunNow(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	return printRuns(ctx, a.store, flagRunsLimit, os.Stdout)
}

func printRuns(ctx context.Context, h recorder.History, limit int, out io.Writer) error {
	runs, err := h.RecentBatchRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tPROCESSED\tNOTIFIED\tSKIPPED\tINELIGIBLE\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Processed, r.Notified, r.Skipped, r.Ineligible, r.Failed)
	}
	return w.Flush()
}
