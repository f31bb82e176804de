package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"relink/internal/apply"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Rewrite legacy shortcodes and links across the whole corpus",
		Long: "Apply follows every settled decision to its final catalog id, rewrites " +
			"directive ids and companion links in every content item, and writes back " +
			"only the items that changed. Running it again with the same ledger changes nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{
				mutating:       !dryRun,
				readOnlyLedger: dryRun,
				backup:         !dryRun,
				tools:          true,
			})
			if err != nil {
				return err
			}
			defer s.close()

			if pending := s.ledger.Stats().Pending; pending > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d records are still pending review; their legacy ids stay in place\n", pending)
			}

			engine := apply.New(s.tools.grammar, s.tools.index,
				apply.WithLogger(s.logger),
				apply.WithWorkers(s.cfg.Matching.Workers))
			result, err := engine.Run(s.ctx, s.ledger, s.store, dryRun)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}
			if jsonOut {
				if err := writeJSON(cmd, result); err != nil {
					return err
				}
			} else {
				printApplyResult(cmd.OutOrStdout(), result)
			}
			return applyOutcome(result)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	addJSONFlag(cmd, &jsonOut, "the apply result")
	return cmd
}

// applyOutcome turns write failures into a command error whatever the output
// format, so scripts reading --json still see a non-zero exit.
func applyOutcome(result apply.Result) error {
	if result.Failed > 0 {
		return fmt.Errorf("%d content items could not be written; rerun apply", result.Failed)
	}
	return nil
}

func printApplyResult(out io.Writer, result apply.Result) {
	changedLabel := "Items changed"
	if result.DryRun {
		fmt.Fprintln(out, "Dry run: no content was written")
		changedLabel = "Items that would change"
	}
	fmt.Fprintln(out, renderCounts([][2]string{
		{"Legacy id mappings", strconv.Itoa(result.Mappings)},
		{"Link rules", strconv.Itoa(result.PathRules)},
		{"Items scanned", strconv.Itoa(result.Scanned)},
		{changedLabel, strconv.Itoa(result.Changed)},
		{"Directives rewritten", strconv.Itoa(result.DirectivesRewritten)},
		{"Links rewritten", strconv.Itoa(result.URLsRewritten)},
		{"Items written", strconv.Itoa(result.Written)},
		{"Write failures", strconv.Itoa(result.Failed)},
	}))

	if len(result.Unresolved) > 0 {
		rows := make([][]string, 0, len(result.Unresolved))
		for _, a := range result.Unresolved {
			rows = append(rows, []string{a.LegacyID, strings.Join(a.Chain, " -> "), a.Reason, strconv.Itoa(len(a.Keys))})
		}
		fmt.Fprintln(out, "Unresolved legacy ids (left unchanged):")
		fmt.Fprintln(out, renderTable([]column{left("Legacy ID"), left("Chain"), left("Reason"), right("Records")}, rows))
	}
	if len(result.TargetConflicts) > 0 {
		rows := make([][]string, 0, len(result.TargetConflicts))
		for _, c := range result.TargetConflicts {
			targets := make([]string, 0, len(c.Targets))
			for _, id := range c.Targets {
				targets = append(targets, strconv.FormatInt(id, 10))
			}
			rows = append(rows, []string{c.LegacyID, strings.Join(targets, ", "), strconv.FormatInt(c.Chosen, 10)})
		}
		fmt.Fprintln(out, "Legacy ids decided to several targets (latest decision applied):")
		fmt.Fprintln(out, renderTable([]column{left("Legacy ID"), left("Targets").wrapped(40), right("Applied")}, rows))
	}
	if len(result.PathConflicts) > 0 {
		rows := make([][]string, 0, len(result.PathConflicts))
		for _, c := range result.PathConflicts {
			rows = append(rows, []string{c.Path, strings.Join(c.Candidates, ", ")})
		}
		fmt.Fprintln(out, "Link paths with conflicting targets (left unchanged):")
		fmt.Fprintln(out, renderTable([]column{left("Path"), left("Candidates").wrapped(60)}, rows))
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "write failed: content %d (%s): %s\n", f.ContentID, f.Title, f.Error)
	}
}
