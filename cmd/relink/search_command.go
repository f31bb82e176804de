package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search the catalog by free text",
		Long:  "Search ranks catalog entries for a product name, slug or SKU the same way review does.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("search text is required")
			}
			s, err := ctx.openSession(cmd, sessionOptions{readOnlyLedger: true, tools: true})
			if err != nil {
				return err
			}
			defer s.close()

			suggestions := s.tools.engine.SuggestFromFreeText(query)
			if jsonOut {
				return writeJSON(cmd, nonNil(suggestions))
			}
			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintf(out, "No catalog entry matches %q\n", query)
				return nil
			}
			rows := make([][]string, 0, len(suggestions))
			for _, sg := range suggestions {
				rows = append(rows, []string{
					strconv.FormatInt(sg.Entry.ID, 10),
					sg.Entry.Name,
					sg.Entry.Slug,
					sg.Entry.SKU,
					fmt.Sprintf("%d%%", sg.Confidence),
					sg.Method,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				right("ID"), left("Name"), left("Slug"), left("SKU"), right("Confidence"), left("Method").wrapped(40),
			}, rows))
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut, "suggestions")
	return cmd
}
