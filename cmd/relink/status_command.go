package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"relink/internal/ledger"
	"relink/internal/textutil"
)

type statusReport struct {
	LedgerPath     string                     `json:"ledger_path"`
	ContentDB      string                     `json:"content_db"`
	ContentItems   int                        `json:"content_items"`
	CatalogEntries int                        `json:"catalog_entries"`
	Ledger         ledger.Stats               `json:"ledger"`
	Discontinued   []ledger.DiscontinuedEntry `json:"discontinued"`
	Pending        []pendingRow               `json:"pending,omitempty"`
}

type pendingRow struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	RawToken string `json:"raw_token"`
	Signals  int    `json:"signals"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showPending bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger progress and the discontinued audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, sessionOptions{readOnlyLedger: true})
			if err != nil {
				return err
			}
			defer s.close()

			items, err := s.store.CountContent(s.ctx)
			if err != nil {
				return err
			}
			entries, err := s.store.ListCatalog(s.ctx)
			if err != nil {
				return err
			}
			report := statusReport{
				LedgerPath:     s.ledger.Path(),
				ContentDB:      s.store.Path(),
				ContentItems:   items,
				CatalogEntries: len(entries),
				Ledger:         s.ledger.Stats(),
				Discontinued:   nonNil(s.ledger.DiscontinuedAudit()),
			}
			if showPending {
				for _, rec := range s.ledger.Pending() {
					report.Pending = append(report.Pending, pendingRow{
						Key:      rec.Key().String(),
						Title:    rec.Title,
						RawToken: rec.RawToken,
						Signals:  rec.Signals.Count(),
					})
				}
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			printStatus(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()), time.Now())
			return nil
		},
	}

	addJSONFlag(cmd, &jsonOut, "status")
	cmd.Flags().BoolVar(&showPending, "pending", false, "List every pending record")
	return cmd
}

func printStatus(out io.Writer, report statusReport, colorize bool, now time.Time) {
	stats := report.Ledger
	for _, line := range renderSectionHeader("Ledger", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Ledger", statusInfo, report.LedgerPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Content", statusInfo,
		fmt.Sprintf("%s items, %s catalog entries", humanize.Comma(int64(report.ContentItems)), humanize.Comma(int64(report.CatalogEntries))), colorize))
	if stats.Total > 0 {
		fmt.Fprintln(out, renderStatusLine("Updated", statusInfo, humanize.RelTime(stats.UpdatedAt, now, "ago", "from now"), colorize))
	}

	progress := statusOK
	progressText := "nothing pending"
	if stats.Total == 0 {
		progress, progressText = statusWarn, "empty; run 'relink scan'"
	} else if stats.Pending > 0 {
		settled := stats.Total - stats.Pending
		progress = statusWarn
		progressText = fmt.Sprintf("%d pending, %d of %d settled (%.0f%%)",
			stats.Pending, settled, stats.Total, float64(settled)*100/float64(stats.Total))
	}
	fmt.Fprintln(out, renderStatusLine("Review", progress, progressText, colorize))

	fmt.Fprintln(out, renderCounts([][2]string{
		{"Records", strconv.Itoa(stats.Total)},
		{"Pending", strconv.Itoa(stats.Pending)},
		{"Approved", strconv.Itoa(stats.Approved)},
		{"Manual", strconv.Itoa(stats.Manual)},
		{"Rejected", strconv.Itoa(stats.Rejected)},
		{"Slug decisions", strconv.Itoa(stats.SlugDecisions)},
		{"Rejected slugs", strconv.Itoa(stats.RejectedSlugs)},
		{"Discontinued ids", strconv.Itoa(stats.Discontinued)},
	}))

	if len(report.Discontinued) > 0 {
		for _, line := range renderSectionHeader("Discontinued", colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(report.Discontinued))
		for _, entry := range report.Discontinued {
			titles := make([]string, 0, len(entry.Occurrences))
			for _, occ := range entry.Occurrences {
				titles = append(titles, fmt.Sprintf("%d %s", occ.ContentID, textutil.Truncate(occ.Title, 40)))
			}
			rows = append(rows, []string{
				entry.LegacyID,
				strconv.Itoa(len(entry.Occurrences)),
				strings.Join(titles, "\n"),
				entry.Note,
				humanize.RelTime(entry.MarkedAt, now, "ago", "from now"),
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			left("Legacy ID"), right("Items"), left("Content"), left("Note").wrapped(40), left("Marked"),
		}, rows))
	}

	if len(report.Pending) > 0 {
		for _, line := range renderSectionHeader("Pending", colorize) {
			fmt.Fprintln(out, line)
		}
		rows := make([][]string, 0, len(report.Pending))
		for _, p := range report.Pending {
			rows = append(rows, []string{p.Key, textutil.Truncate(p.Title, 48), p.RawToken, strconv.Itoa(p.Signals)})
		}
		fmt.Fprintln(out, renderTable([]column{left("Key"), left("Title"), left("Token").wrapped(48), right("Signals")}, rows))
	}
}
