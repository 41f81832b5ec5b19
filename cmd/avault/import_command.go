package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"avault-backend/internal/importer"
	"avault-backend/internal/logging"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an inventory spreadsheet (.xlsx or .csv) into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.open()
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			table, err := importer.ReadTable(filepath.Base(path), f)
			if err != nil {
				return err
			}
			res, err := importer.New(db, logging.GetLogger()).Import(cmd.Context(), table, importer.Options{
				FileName: filepath.Base(path),
			})
			if res != nil {
				printImportResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
}

func printImportResult(out io.Writer, res *importer.Result) {
	fmt.Fprintf(out, "Import %s -> session %q\n", res.ImportID, res.SessionName)
	fmt.Fprintf(out, "Terms: %s\n", strings.Join(res.Terms, ", "))

	rows := [][]string{
		{"categories", strconv.Itoa(res.CategoriesCreated), strconv.Itoa(res.CategoriesUpdated)},
		{"items", strconv.Itoa(res.ItemsCreated), strconv.Itoa(res.ItemsUpdated)},
		{"terms", strconv.Itoa(res.TermsCreated), "-"},
		{"historical counts", strconv.Itoa(res.HistoricalCountsCreated), strconv.Itoa(res.HistoricalCountsUpdated)},
	}
	fmt.Fprintln(out, renderTable([]string{"", "Created", "Updated"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))

	if len(res.SkippedColumns) > 0 {
		fmt.Fprintf(out, "Skipped columns: %s\n", strings.Join(res.SkippedColumns, ", "))
	}
	if len(res.OrphanRows) > 0 {
		lines := make([]string, len(res.OrphanRows))
		for i, r := range res.OrphanRows {
			lines[i] = strconv.Itoa(r)
		}
		fmt.Fprintf(out, "Rows before any category (dropped): %s\n", strings.Join(lines, ", "))
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "Error: %s\n", e.Error())
	}
	if res.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", res.Error)
	}
}
