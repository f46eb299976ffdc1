package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rundemo/rundemo/pkg/tracker"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		recent int
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion token usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if since > 0 {
				total, err := tr.TotalSince(ctx, time.Now().UTC().Add(-since))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Total tokens in the last %s: %d\n", since, total)
				return nil
			}

			// Recent requests view
			if recent > 0 {
				records, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(out, "No requests found.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tREQUEST ID\tMODEL\tREVISION\tPROMPT\tCOMPLETION\tTOTAL")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.RequestID, r.Model, r.Revision, r.PromptTokens, r.CompletionTokens, r.TotalTokens)
				}
				return w.Flush()
			}

			summaries, err := tr.Summary(ctx)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
					s.Model, s.RequestCount, s.TotalPrompt, s.TotalCompletion, s.TotalTokens)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent requests")
	cmd.Flags().DurationVar(&since, "since", 0, "print total tokens used within this window (e.g. 24h)")
	return cmd
}
