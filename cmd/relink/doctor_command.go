package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relink/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that relink can read and write everything it needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configExists {
				fmt.Fprintln(out, renderStatusLine("Config file", statusOK, ctx.configPath, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Config file", statusWarn, "not found; using defaults", colorize))
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range renderSectionHeader("Checks", colorize) {
				fmt.Fprintln(out, line)
			}
			failed := printPreflight(out, results, colorize)
			if failed > 0 {
				return errors.New("doctor found problems")
			}
			fmt.Fprintln(out, renderStatusLine("Summary", statusOK, "all checks passed", colorize))
			return nil
		},
	}
}

func printPreflight(out io.Writer, results []preflight.Result, colorize bool) int {
	failed := 0
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
			failed++
		}
		fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	if failed > 0 {
		fmt.Fprintln(out, renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d checks failed", failed, len(results)), colorize))
	}
	return failed
}
