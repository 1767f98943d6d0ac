package services

import (
	"context"
	"fmt"
	"time"

	"YellowbellPOS/app/config"
	"YellowbellPOS/app/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetsCellLimit is the most characters Google Sheets accepts in one cell
const sheetsCellLimit = 50000

// SheetsMirror replicates each collection into a fixed row of a spreadsheet
type SheetsMirror struct {
	srv    *sheets.Service
	config config.SheetsConfig
}

// NewSheetsMirror authenticates with the service account credentials in cfg
func NewSheetsMirror(ctx context.Context, cfg config.SheetsConfig) (*SheetsMirror, error) {
	if cfg.CredentialsJSON == "" || cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("missing credentials or spreadsheet ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Mirror"
	}

	creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &SheetsMirror{srv: srv, config: cfg}, nil
}

// Name identifies the target in sync logs
func (m *SheetsMirror) Name() string {
	return config.MirrorTargetSheets
}

// Replicate overwrites the collection's row with the latest snapshot
func (m *SheetsMirror) Replicate(ctx context.Context, collection string, payload []byte) error {
	row := sheetsRowFor(collection)
	if row == 0 {
		return fmt.Errorf("collection %s has no sheet row", collection)
	}

	if err := m.ensureHeaders(ctx); err != nil {
		return fmt.Errorf("failed to ensure headers: %w", err)
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{{
			collection,
			time.Now().UTC().Format(time.RFC3339),
			truncateCell(string(payload)),
		}},
	}
	sheetRange := fmt.Sprintf("%s!A%d:C%d", m.config.SheetName, row, row)
	_, err := m.srv.Spreadsheets.Values.Update(m.config.SpreadsheetID, sheetRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to update %s: %w", collection, err)
	}
	return nil
}

func (m *SheetsMirror) ensureHeaders(ctx context.Context) error {
	sheetRange := fmt.Sprintf("%s!A1:C1", m.config.SheetName)
	resp, err := m.srv.Spreadsheets.Values.Get(m.config.SpreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) >= 3 {
		return nil
	}

	headers := &sheets.ValueRange{
		Values: [][]interface{}{{"Collection", "Mirrored At", "Payload"}},
	}
	_, err = m.srv.Spreadsheets.Values.Update(m.config.SpreadsheetID, sheetRange, headers).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// sheetsRowFor returns the 1-based row for collection, below the header row
func sheetsRowFor(collection string) int {
	for i, c := range models.AllCollections {
		if string(c) == collection {
			return i + 2
		}
	}
	return 0
}

func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= sheetsCellLimit {
		return s
	}
	return string(runes[:sheetsCellLimit])
}
