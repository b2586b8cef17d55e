package dto

// CreateBookRequest defines the payload for adding a catalog entry.
type CreateBookRequest struct {
	Title  string `json:"title" validate:"required,max=255"`
	Author string `json:"author" validate:"required,max=255"`
	Genre  string `json:"genre" validate:"omitempty,max=120"`
	ISBN   string `json:"isbn" validate:"omitempty,max=32"`
}

// ImportSheetsRequest points the importer at a Google spreadsheet. APIKey
// overrides the server-side key when present.
type ImportSheetsRequest struct {
	SpreadsheetID string `json:"spreadsheetId" validate:"required"`
	SheetName     string `json:"sheetName"`
	APIKey        string `json:"apiKey"`
}

// ImportRowError reports why a spreadsheet row was skipped. Row is 1-based
// and counts the header line.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}
