// Package export writes an owner's transactions to CSV and Google Sheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"ledger/internal/core"
)

// Row is the flat export shape of one transaction. Names of deleted
// categories and labels come out empty.
type Row struct {
	Date        string `csv:"date"`
	Type        string `csv:"type"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	Label       string `csv:"label"`
	Description string `csv:"description"`
	ID          string `csv:"id"`
}

// Header lists the column names in export order.
var Header = []string{"date", "type", "amount", "category", "label", "description", "id"}

// Rows flattens transactions, keeping their order.
func Rows(txs []core.Transaction) []Row {
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		row := Row{
			Date:        t.DayKey(),
			Type:        string(t.Type),
			Amount:      t.Amount.StringFixed(core.AmountPlaces),
			Category:    deref(t.Category.Name),
			Description: t.Description,
			ID:          t.ID,
		}
		if t.Label != nil {
			row.Label = deref(t.Label.Name)
		}
		rows = append(rows, row)
	}
	return rows
}

func (r Row) values() []any {
	return []any{r.Date, r.Type, r.Amount, r.Category, r.Label, r.Description, r.ID}
}

// WriteCSV writes a header line followed by one line per transaction.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	rows := Rows(txs)
	csvWriter := csv.NewWriter(w)
	if len(rows) == 0 {
		// gocsv writes nothing at all for an empty slice.
		if err := csvWriter.Write(Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		csvWriter.Flush()
		return csvWriter.Error()
	}
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}
	return rows, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
