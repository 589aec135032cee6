package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mandalnilabja/chatrelay/internal/storage"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent relayed requests from the history store",
		Args:  cobra.NoArgs,
		RunE:  runLogs,
	}
	cmd.Flags().Int("limit", 20, "Number of entries to show")
	cmd.Flags().String("model", "", "Only show requests for this model")
	cmd.Flags().String("outcome", "", "Only show this outcome (relayed, upstream_error, transport_failure, ...)")
	cmd.Flags().Duration("since", 0, "Only show entries newer than this duration (e.g. 24h)")
	cmd.Flags().Duration("prune", 0, "Delete entries older than this duration instead of listing (e.g. 720h)")
	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	model, _ := cmd.Flags().GetString("model")
	outcome, _ := cmd.Flags().GetString("outcome")
	since, _ := cmd.Flags().GetDuration("since")
	prune, _ := cmd.Flags().GetDuration("prune")

	if limit < 0 {
		return fmt.Errorf("limit must be >= 0, got %d", limit)
	}
	if since < 0 {
		return fmt.Errorf("since must be >= 0, got %s", since)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("request history is disabled (history_db = %q)", "off")
	}

	store, err := openHistory(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if prune > 0 {
		n, err := store.DeleteRequestLogs(ctx, time.Now().Add(-prune))
		if err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
		return nil
	}

	filter := storage.LogFilter{
		Model:   model,
		Outcome: outcome,
		Limit:   limit,
	}
	if since > 0 {
		cutoff := time.Now().Add(-since)
		filter.Since = &cutoff
	}

	logs, err := store.GetRequestLogs(ctx, filter)
	if err != nil {
		return fmt.Errorf("reading history: %w", err)
	}
	return printLogs(cmd.OutOrStdout(), logs)
}

func printLogs(w io.Writer, logs []*storage.RequestLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "no requests recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tREQUEST ID\tMODEL\tOUTCOME\tSTATUS\tTOKENS\tDURATION")
	for _, l := range logs {
		tokens := fmt.Sprintf("%d", l.TotalTokens)
		if l.TokensEstimated {
			tokens = "~" + tokens
		}
		model := l.Model
		if model == "" {
			model = "-"
		}
		if l.IsStreaming {
			model += " (stream)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%dms\n",
			l.CreatedAt.Local().Format(time.DateTime),
			l.RequestID,
			model,
			l.Outcome,
			l.StatusCode,
			tokens,
			l.DurationMs,
		)
	}
	return tw.Flush()
}
