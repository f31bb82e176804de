package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"relink/internal/ledger"
	"relink/internal/review"
)

func newDecideCommand(ctx *commandContext) *cobra.Command {
	var target int64
	var discontinued bool
	var reject bool
	var note string

	cmd := &cobra.Command{
		Use:   "decide <content-id>:<legacy-id>",
		Short: "Record a decision for one pending record without prompting",
		Long: "Decide settles a single ledger record. --target names a catalog id or a " +
			"tracked legacy id, --reject rejects only this occurrence, and --discontinued " +
			"rejects every occurrence of the legacy id now and in future scans.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ledger.ParseKey(args[0])
			if err != nil {
				return err
			}
			action, err := decideAction(target, reject, discontinued, note)
			if err != nil {
				return err
			}

			s, err := ctx.openSession(cmd, sessionOptions{mutating: true, tools: true})
			if err != nil {
				return err
			}
			defer s.close()

			summary, err := review.New(s.ledger, s.tools.engine, review.WithLogger(s.logger)).Decide(key, action)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch action.Kind {
			case review.ActionTarget:
				fmt.Fprintf(out, "%s -> %d (%d more records propagated)\n", key, target, summary.Propagated)
			case review.ActionDiscontinue:
				fmt.Fprintf(out, "%s marked discontinued (%d records rejected)\n", key.LegacyID, summary.Discontinued)
			default:
				fmt.Fprintf(out, "%s rejected\n", key)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&target, "target", 0, "Catalog id (or tracked legacy id) to resolve to")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject this occurrence only")
	cmd.Flags().BoolVar(&discontinued, "discontinued", false, "Mark the legacy id discontinued everywhere")
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the decision")
	return cmd
}

func decideAction(target int64, reject, discontinued bool, note string) (review.Action, error) {
	chosen := 0
	if target != 0 {
		chosen++
	}
	if reject {
		chosen++
	}
	if discontinued {
		chosen++
	}
	if chosen != 1 {
		return review.Action{}, errors.New("exactly one of --target, --reject or --discontinued is required")
	}
	switch {
	case target < 0:
		return review.Action{}, fmt.Errorf("--target must be positive, got %d", target)
	case target > 0:
		return review.Action{Kind: review.ActionTarget, TargetID: target, Note: note}, nil
	case reject:
		return review.Action{Kind: review.ActionReject, Note: note}, nil
	default:
		return review.Action{Kind: review.ActionDiscontinue, Note: note}, nil
	}
}
