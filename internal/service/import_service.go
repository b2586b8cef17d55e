package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

// SheetReader fetches the cell values of a spreadsheet range.
type SheetReader interface {
	ReadRows(ctx context.Context, spreadsheetID, readRange, apiKey string) ([][]string, error)
}

// GoogleSheetsReader reads public spreadsheets through the Sheets v4 API using an API key.
type GoogleSheetsReader struct {
	opts []option.ClientOption
}

// NewGoogleSheetsReader builds a reader. Extra options are appended to every client, which lets tests point it at a fake endpoint.
func NewGoogleSheetsReader(opts ...option.ClientOption) *GoogleSheetsReader {
	return &GoogleSheetsReader{opts: opts}
}

// ReadRows implements SheetReader.
func (r *GoogleSheetsReader) ReadRows(ctx context.Context, spreadsheetID, readRange, apiKey string) ([][]string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, r.opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	resp, err := srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet values: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type bookImporter interface {
	ImportRows(ctx context.Context, rows []dto.CreateBookRequest, firstRow int) (*dto.ImportResult, error)
}

// ImportConfig holds importer defaults.
type ImportConfig struct {
	APIKey       string
	DefaultRange string
}

// ImportService turns spreadsheet-shaped data into catalog entries.
type ImportService struct {
	catalog bookImporter
	sheets  SheetReader
	logger  *zap.Logger
	config  ImportConfig
}

// NewImportService constructs an ImportService. sheets may be nil when only CSV import is used.
func NewImportService(catalog bookImporter, sheets SheetReader, logger *zap.Logger, config ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultRange == "" {
		config.DefaultRange = "Sheet1"
	}
	return &ImportService{catalog: catalog, sheets: sheets, logger: logger, config: config}
}

// quoteSheetRange turns a bare sheet name into A1 notation; explicit ranges pass through.
func quoteSheetRange(name string) string {
	if strings.Contains(name, "!") || strings.HasPrefix(name, "'") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ImportSheet imports every data row of a Google spreadsheet.
func (s *ImportService) ImportSheet(ctx context.Context, req dto.ImportSheetsRequest) (*dto.ImportResult, error) {
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	if req.SpreadsheetID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheetId is required")
	}
	if s.sheets == nil {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "sheets import is not configured")
	}
	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = s.config.APIKey
	}
	if apiKey == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "apiKey is required")
	}
	readRange := s.config.DefaultRange
	if name := strings.TrimSpace(req.SheetName); name != "" {
		readRange = quoteSheetRange(name)
	}

	values, err := s.sheets.ReadRows(ctx, req.SpreadsheetID, readRange, apiKey)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "spreadsheet not found")
		}
		if appErrors.IsTimeout(err) {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "spreadsheet read timed out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to read spreadsheet")
	}

	s.logger.Info("sheet fetched", zap.String("spreadsheet_id", req.SpreadsheetID), zap.String("range", readRange), zap.Int("rows", len(values)))
	return s.importTable(ctx, values)
}

// ImportCSV imports a CSV document whose first line is a header.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	values, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid csv")
	}
	return s.importTable(ctx, values)
}

func (s *ImportService) importTable(ctx context.Context, values [][]string) (*dto.ImportResult, error) {
	rows, err := BooksFromTable(values)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &dto.ImportResult{}, nil
	}
	return s.catalog.ImportRows(ctx, rows, 2)
}

// BooksFromTable maps a header row naming title, author, genre and isbn
// (any order, any case) onto book requests for the following rows.
func BooksFromTable(values [][]string) ([]dto.CreateBookRequest, error) {
	if len(values) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sheet is empty")
	}

	columns := map[string]int{}
	for i, name := range values[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "header row must contain title and author columns")
	}
	if _, ok := columns["author"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "header row must contain title and author columns")
	}

	cell := func(row []string, column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	out := make([]dto.CreateBookRequest, 0, len(values)-1)
	for _, row := range values[1:] {
		out = append(out, dto.CreateBookRequest{
			Title:  cell(row, "title"),
			Author: cell(row, "author"),
			Genre:  cell(row, "genre"),
			ISBN:   cell(row, "isbn"),
		})
	}
	return out, nil
}
