package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"relink/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find legacy shortcodes and record them in the ledger",
		Long: "Scan reads every content item, records each legacy identifier it has not seen " +
			"before, and settles what pattern memory already knows. Re-running it over an " +
			"unchanged corpus adds nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{mutating: true, tools: true})
			if err != nil {
				return err
			}
			defer s.close()

			scanner := scan.New(s.tools.grammar, s.tools.extractor, s.tools.engine,
				scan.WithLogger(s.logger),
				scan.WithWorkers(s.cfg.Matching.Workers),
				scan.WithMarker(s.cfg.DirectiveMarker()))
			result, err := scanner.Run(s.ctx, s.store, s.ledger)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCounts([][2]string{
				{"Content items", strconv.Itoa(result.Items)},
				{"Occurrences", strconv.Itoa(result.Occurrences)},
				{"Discovered", strconv.Itoa(result.Discovered)},
				{"Resolved from memory", strconv.Itoa(result.AutoResolved)},
				{"Rejected as discontinued", strconv.Itoa(result.AutoRejected)},
				{"Pending review", strconv.Itoa(result.Pending)},
				{"Already known", strconv.Itoa(result.Known)},
				{"Current references", strconv.Itoa(result.Current)},
			}))
			if result.Confident > 0 {
				fmt.Fprintf(out, "%d pending records clear the auto-approve threshold; run 'relink review --auto-only' to settle them\n", result.Confident)
			}
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut, "the scan summary")
	return cmd
}
