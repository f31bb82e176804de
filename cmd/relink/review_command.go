package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"relink/internal/review"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	var autoOnly bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Resolve pending ledger records",
		Long: "Review approves every pending record whose best suggestion clears the " +
			"auto-approve threshold, then prompts for the rest, best guesses first. " +
			"Every decision is saved immediately, so quitting loses nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{mutating: true, backup: true, tools: true})
			if err != nil {
				return err
			}
			defer s.close()

			opts := []review.Option{review.WithLogger(s.logger)}
			var prompter review.Prompter
			if autoOnly {
				opts = append(opts, review.AutoOnly())
			} else {
				prompter = review.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), s.cfg.Matching.AutoApproveThreshold)
			}
			summary, err := review.New(s.ledger, s.tools.engine, opts...).Run(s.ctx, prompter)
			if err != nil {
				return fmt.Errorf("review: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCounts([][2]string{
				{"Pending at start", strconv.Itoa(summary.Pending)},
				{"Auto-approved", strconv.Itoa(summary.AutoApproved)},
				{"Approved", strconv.Itoa(summary.Approved)},
				{"Manual", strconv.Itoa(summary.Manual)},
				{"Rejected", strconv.Itoa(summary.Rejected)},
				{"Discontinued", strconv.Itoa(summary.Discontinued)},
				{"Propagated", strconv.Itoa(summary.Propagated)},
				{"Deferred", strconv.Itoa(summary.Deferred)},
				{"Remaining", strconv.Itoa(summary.Remaining)},
			}))
			if summary.Remaining == 0 {
				fmt.Fprintln(out, "Nothing left to review; run 'relink apply --dry-run' to preview the rewrite")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoOnly, "auto-only", false, "Only approve records above the confidence threshold; never prompt")
	addJSONFlag(cmd, &jsonOut, "the session summary")
	return cmd
}
