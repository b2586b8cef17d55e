package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	appErrors "github.com/noah-isme/library-catalog-api/pkg/errors"
)

type stubSheetReader struct {
	rows      [][]string
	err       error
	gotID     string
	gotRange  string
	gotAPIKey string
}

func (s *stubSheetReader) ReadRows(ctx context.Context, spreadsheetID, readRange, apiKey string) ([][]string, error) {
	s.gotID, s.gotRange, s.gotAPIKey = spreadsheetID, readRange, apiKey
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func newImportFixture(reader SheetReader, cfg ImportConfig) (*memoryLibrary, *ImportService) {
	lib := newMemoryLibrary()
	catalog := NewCatalogService(lib, nil, nil, nil)
	return lib, NewImportService(catalog, reader, nil, cfg)
}

func TestBooksFromTableMapsHeaders(t *testing.T) {
	rows, err := BooksFromTable([][]string{
		{"ISBN", " Author ", "TITLE"},
		{"978-0441013593", "Frank Herbert", "Dune"},
		{"", "Jane Austen"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, dto.CreateBookRequest{Title: "Dune", Author: "Frank Herbert", ISBN: "978-0441013593"}, rows[0])
	assert.Equal(t, dto.CreateBookRequest{Author: "Jane Austen"}, rows[1])
}

func TestBooksFromTableRejectsBadHeader(t *testing.T) {
	_, err := BooksFromTable(nil)
	requireCode(t, err, appErrors.ErrValidation)

	_, err = BooksFromTable([][]string{{"name", "writer"}, {"Dune", "Herbert"}})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestImportServiceImportSheet(t *testing.T) {
	reader := &stubSheetReader{rows: [][]string{
		{"Title", "Author", "Genre"},
		{"Dune", "Frank Herbert", "Sci-Fi"},
		{"", "Anonymous", ""},
		{"Emma", "Jane Austen", "Classic"},
	}}
	lib, svc := newImportFixture(reader, ImportConfig{APIKey: "server-key"})

	result, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "sheet-123", SheetName: "Books 2024"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)

	assert.Equal(t, "sheet-123", reader.gotID)
	assert.Equal(t, "'Books 2024'", reader.gotRange)
	assert.Equal(t, "server-key", reader.gotAPIKey)
	assert.Len(t, lib.books, 2)
}

func TestImportServiceRequestKeyOverridesConfig(t *testing.T) {
	reader := &stubSheetReader{rows: [][]string{{"title", "author"}}}
	_, svc := newImportFixture(reader, ImportConfig{APIKey: "server-key"})

	result, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "id", APIKey: "client-key"})
	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	assert.Equal(t, "client-key", reader.gotAPIKey)
	assert.Equal(t, "Sheet1", reader.gotRange)
}

func TestImportServiceSheetErrors(t *testing.T) {
	t.Run("missing spreadsheet id", func(t *testing.T) {
		_, svc := newImportFixture(&stubSheetReader{}, ImportConfig{APIKey: "k"})
		_, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{})
		requireCode(t, err, appErrors.ErrValidation)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, svc := newImportFixture(&stubSheetReader{}, ImportConfig{})
		_, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "id"})
		requireCode(t, err, appErrors.ErrValidation)
	})

	t.Run("spreadsheet not found", func(t *testing.T) {
		reader := &stubSheetReader{err: fmt.Errorf("read sheet values: %w", &googleapi.Error{Code: http.StatusNotFound})}
		_, svc := newImportFixture(reader, ImportConfig{APIKey: "k"})
		_, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "id"})
		requireCode(t, err, appErrors.ErrNotFound)
	})

	t.Run("upstream failure", func(t *testing.T) {
		reader := &stubSheetReader{err: errors.New("quota exceeded")}
		_, svc := newImportFixture(reader, ImportConfig{APIKey: "k"})
		_, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "id"})
		appErr := requireCode(t, err, appErrors.ErrUpstream)
		assert.Equal(t, 502, appErr.Status)
	})

	t.Run("reader not configured", func(t *testing.T) {
		_, svc := newImportFixture(nil, ImportConfig{APIKey: "k"})
		_, err := svc.ImportSheet(context.Background(), dto.ImportSheetsRequest{SpreadsheetID: "id"})
		requireCode(t, err, appErrors.ErrUpstream)
	})
}

func TestImportServiceImportCSV(t *testing.T) {
	lib, svc := newImportFixture(nil, ImportConfig{})
	input := "title,author,isbn\nDune,Frank Herbert,978-0441013593\n\"Emma, Revised\",Jane Austen,\n"

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Skipped)

	books, _, err := NewCatalogService(lib, nil, nil, nil).List(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Emma, Revised", books[1].Title)
}

func TestImportServiceImportCSVRejectsMalformed(t *testing.T) {
	_, svc := newImportFixture(nil, ImportConfig{})
	_, err := svc.ImportCSV(context.Background(), strings.NewReader("title,author\n\"Dune,Herbert\n"))
	requireCode(t, err, appErrors.ErrValidation)
}

func TestQuoteSheetRange(t *testing.T) {
	assert.Equal(t, "'Sheet1'", quoteSheetRange("Sheet1"))
	assert.Equal(t, "'Bob''s list'", quoteSheetRange("Bob's list"))
	assert.Equal(t, "Sheet1!A1:D50", quoteSheetRange("Sheet1!A1:D50"))
}

func TestGoogleSheetsReaderReadRows(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Sheet1!A1:B3","majorDimension":"ROWS","values":[["Title","Author"],["Dune","Frank Herbert"],["Catch-22",1961]]}`))
	}))
	defer server.Close()

	reader := NewGoogleSheetsReader(option.WithEndpoint(server.URL+"/"), option.WithHTTPClient(server.Client()))
	rows, err := reader.ReadRows(context.Background(), "sheet-123", "Sheet1", "key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-123/values/"), gotPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Title", "Author"}, rows[0])
	assert.Equal(t, []string{"Catch-22", "1961"}, rows[2])
}
