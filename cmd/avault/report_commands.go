package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"avault-backend/internal/logging"
	"avault-backend/internal/reconcile"
	"avault-backend/internal/report"
	"avault-backend/internal/term"

	"github.com/spf13/cobra"
)

func newTermsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "List academic terms in chronological order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.open()
			if err != nil {
				return err
			}
			terms, err := term.NewRegistry(db).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(terms) == 0 {
				fmt.Fprintln(out, "No terms yet")
				return nil
			}
			rows := make([][]string, 0, len(terms))
			for _, t := range terms {
				rows = append(rows, []string{strconv.FormatUint(uint64(t.ID), 10), t.Name})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Term"}, rows, []columnAlignment{alignRight, alignLeft}))
			fmt.Fprintf(out, "Current by calendar: %s\n", term.Current(time.Now()).Name())
			return nil
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var sessionID uint
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare a session's counts with expected quantities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.open()
			if err != nil {
				return err
			}
			rec := reconcile.New(db, logging.GetLogger())

			var res *reconcile.Result
			if sessionID > 0 {
				res, err = rec.Reconcile(cmd.Context(), sessionID)
			} else {
				res, err = rec.ReconcileLatest(cmd.Context())
			}
			if err != nil {
				return err
			}
			printReconciliation(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().UintVar(&sessionID, "session", 0, "Session ID (default: latest completed session)")
	return cmd
}

func printReconciliation(out io.Writer, res *reconcile.Result) {
	if res.Session == nil {
		fmt.Fprintln(out, "No completed session to reconcile")
		return
	}
	fmt.Fprintf(out, "Session: %s (%s)\n", res.Session.Name, res.Session.Date.Format("2006-01-02"))
	if res.Previous != nil {
		fmt.Fprintf(out, "Previous: %s\n", res.Previous.Name)
	}

	sections := []struct {
		title string
		lines []reconcile.Line
	}{
		{"Shortages", res.Shortages},
		{"Surpluses", res.Surpluses},
		{"New items", res.NewItems},
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}
	for _, s := range sections {
		fmt.Fprintf(out, "%s: %d\n", s.title, len(s.lines))
		if len(s.lines) == 0 {
			continue
		}
		rows := make([][]string, 0, len(s.lines))
		for _, l := range s.lines {
			rows = append(rows, []string{l.Category, l.Item, strconv.Itoa(l.Expected), strconv.Itoa(l.Current), strconv.Itoa(l.Amount)})
		}
		fmt.Fprintln(out, renderTable([]string{"Category", "Item", "Expected", "Counted", "Amount"}, rows, aligns))
	}
	fmt.Fprintf(out, "Items counted: %d\n", res.TotalItems)
}

func newTrendCommand(ctx *commandContext) *cobra.Command {
	var terms int
	cmd := &cobra.Command{
		Use:   "trend <item-id>",
		Short: "Show the count trend of one item over recent terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			db, err := ctx.open()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("terms") {
				terms = ctx.config.TrendTerms
			}
			if terms < 2 {
				return fmt.Errorf("--terms must be at least 2")
			}
			tr, err := report.New(db, logging.GetLogger()).Trend(cmd.Context(), uint(id), terms)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s", tr.Item, tr.Status)
			if tr.Status != report.TrendInsufficient {
				fmt.Fprintf(out, " (%+d)", tr.Change)
			}
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(tr.Terms))
			for i, name := range tr.Terms {
				rows = append(rows, []string{name, strconv.Itoa(tr.Counts[i])})
			}
			fmt.Fprintln(out, renderTable([]string{"Term", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVar(&terms, "terms", report.DefaultTrendTerms, "Number of recent terms to include (default from TREND_TERMS)")
	return cmd
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <termA> <termB>",
		Short: "Compare item counts between two terms (name like \"Fall 2024\" or ID)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.open()
			if err != nil {
				return err
			}
			cmp, err := report.New(db, logging.GetLogger()).Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			printComparison(cmd.OutOrStdout(), cmp)
			return nil
		},
	}
}

func printComparison(out io.Writer, cmp *report.Comparison) {
	fmt.Fprintf(out, "%s -> %s (%d items)\n", cmp.TermA.Name, cmp.TermB.Name, cmp.Total())
	buckets := []struct {
		title string
		lines []report.CompareLine
	}{
		{"Added", cmp.Added},
		{"Removed", cmp.Removed},
		{"Increased", cmp.Increased},
		{"Decreased", cmp.Decreased},
		{"Stable", cmp.Stable},
	}
	var rows [][]string
	for _, b := range buckets {
		for _, l := range b.lines {
			rows = append(rows, []string{b.title, l.Category, l.Item,
				strconv.Itoa(l.Previous), strconv.Itoa(l.Current), fmt.Sprintf("%+d", l.Change)})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No counts in either term")
		return
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Change", "Category", "Item", cmp.TermA.Name, cmp.TermB.Name, "Diff"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Write the inventory workbook (items, shortages, sessions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.open()
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := report.New(db, logging.GetLogger()).Export(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
}
