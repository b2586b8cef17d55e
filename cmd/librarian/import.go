package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/service"
)

func newImportCmd() *cobra.Command {
	var (
		file      string
		sheetID   string
		sheetName string
		apiKey    string
	)

	cmd := &cobra.Command{
		Use:   "import-books",
		Short: "Bulk-add books from a CSV file or a Google spreadsheet",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (sheetID == "") {
				return errors.New("exactly one of --file or --sheet is required")
			}
			return nil
		},
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			importer := service.NewImportService(e.catalog(), service.NewGoogleSheetsReader(), e.log, service.ImportConfig{
				APIKey:       e.cfg.Sheets.APIKey,
				DefaultRange: e.cfg.Sheets.DefaultRange,
			})

			var (
				result *dto.ImportResult
				err    error
			)
			if file != "" {
				var in io.ReadCloser
				if file == "-" {
					in = io.NopCloser(cmd.InOrStdin())
				} else if in, err = os.Open(file); err != nil {
					return err
				}
				defer in.Close()
				result, err = importer.ImportCSV(cmd.Context(), in)
			} else {
				result, err = importer.ImportSheet(cmd.Context(), dto.ImportSheetsRequest{SpreadsheetID: sheetID, SheetName: sheetName, APIKey: apiKey})
			}
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return nil
		}),
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV file with a title,author header (- for stdin)")
	cmd.Flags().StringVar(&sheetID, "sheet", "", "Google spreadsheet ID")
	cmd.Flags().StringVar(&sheetName, "range", "", "sheet name or A1 range (defaults to SHEETS_DEFAULT_RANGE)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Google API key (defaults to SHEETS_API_KEY)")
	return cmd
}

func printImportResult(w io.Writer, result *dto.ImportResult) {
	fmt.Fprintf(w, "imported %d, skipped %d\n", result.Imported, result.Skipped)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(w, "  row %d: %s\n", rowErr.Row, rowErr.Message)
	}
}
