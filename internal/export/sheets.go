package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/core"
)

// ValuesWriter replaces the contents of a sheet range.
type ValuesWriter interface {
	ReplaceValues(ctx context.Context, spreadsheetID, sheetName string, values [][]any) (string, error)
}

// SheetsClient writes through the Google Sheets v4 values API.
type SheetsClient struct {
	svc *gsheet.Service
}

var _ ValuesWriter = (*SheetsClient)(nil)

// Credentials picks the service account key, inline JSON winning over the
// file path.
func Credentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	if inlineJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// NewSheetsClient builds a client authenticated with a service account key.
func NewSheetsClient(ctx context.Context, credentialsJSON []byte) (*SheetsClient, error) {
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

func (c *SheetsClient) ReplaceValues(ctx context.Context, spreadsheetID, sheetName string, values [][]any) (string, error) {
	all := fmt.Sprintf("%s!A:G", sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", all, err)
	}

	rng := fmt.Sprintf("%s!A1:G%d", sheetName, len(values))
	// RAW keeps descriptions starting with "=" from being read as formulas.
	resp, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return resp.UpdatedRange, nil
}

// SheetValues lays out the header and one row per transaction. Amounts are
// numbers so the sheet can sum them.
func SheetValues(txs []core.Transaction) [][]any {
	values := make([][]any, 0, len(txs)+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	for i, row := range Rows(txs) {
		v := row.values()
		v[2] = txs[i].Amount.Round(core.AmountPlaces).InexactFloat64()
		values = append(values, v)
	}
	return values
}

// ExportToSheet overwrites sheetName with the given transactions and returns
// the range written.
func ExportToSheet(ctx context.Context, w ValuesWriter, spreadsheetID, sheetName string, txs []core.Transaction) (string, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return "", core.NewValidationError("spreadsheetId", "required")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}

	ref, err := w.ReplaceValues(ctx, spreadsheetID, sheetName, SheetValues(txs))
	if err != nil {
		return "", fmt.Errorf("export to sheet: %w", err)
	}
	slog.InfoContext(ctx, "Transactions exported to Google Sheets",
		"spreadsheet_id", spreadsheetID,
		"range", ref,
		"count", len(txs))
	return ref, nil
}
