package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func strPtr(s string) *string { return &s }

func sampleTransactions() []core.Transaction {
	d1 := core.NewDate(2024, 3, 3)
	d2 := core.NewDate(2024, 3, 9)
	return []core.Transaction{
		{
			ID:          "t2",
			Date:        d2,
			DateString:  d2.Key(),
			Amount:      decimal.RequireFromString("1000"),
			Type:        core.Income,
			Description: "salary",
			CategoryID:  "c2",
			Category:    core.CategoryRef{ID: "c2", Name: strPtr("Salary"), Type: core.Income},
		},
		{
			ID:          "t1",
			Date:        d1,
			DateString:  d1.Key(),
			Amount:      decimal.RequireFromString("12.5"),
			Type:        core.Expense,
			Description: "lunch, with \"friends\"",
			CategoryID:  "c1",
			Category:    core.NewMissingCategoryRef("c1"),
			LabelID:     "l1",
			Label:       &core.LabelRef{ID: "l1", Name: strPtr("Work")},
		},
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTransactions()))

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, strings.Join(Header, ","), firstLine)

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Date: "2024-03-09", Type: "Income", Amount: "1000.00", Category: "Salary", Description: "salary", ID: "t2"}, rows[0])
	assert.Equal(t, Row{Date: "2024-03-03", Type: "Expenses", Amount: "12.50", Category: "", Label: "Work", Description: "lunch, with \"friends\"", ID: "t1"}, rows[1])
}

func TestWriteCSV_EmptyStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Header, ",")+"\n", buf.String())
}

type fakeValuesWriter struct {
	spreadsheetID, sheet string
	values               [][]any
	err                  error
}

func (f *fakeValuesWriter) ReplaceValues(ctx context.Context, spreadsheetID, sheetName string, values [][]any) (string, error) {
	f.spreadsheetID, f.sheet, f.values = spreadsheetID, sheetName, values
	if f.err != nil {
		return "", f.err
	}
	return sheetName + "!A1:G3", nil
}

func TestExportToSheet(t *testing.T) {
	w := &fakeValuesWriter{}
	ref, err := ExportToSheet(context.Background(), w, "sheet-123", "", sampleTransactions())
	require.NoError(t, err)

	assert.Equal(t, "Transactions!A1:G3", ref)
	assert.Equal(t, "sheet-123", w.spreadsheetID)
	require.Len(t, w.values, 3)
	assert.Equal(t, "date", w.values[0][0])
	assert.Equal(t, 1000.0, w.values[1][2])
	assert.Equal(t, 12.5, w.values[2][2])
	assert.Equal(t, "Work", w.values[2][4])
}

func TestExportToSheet_Errors(t *testing.T) {
	_, err := ExportToSheet(context.Background(), &fakeValuesWriter{}, " ", "x", nil)
	assert.True(t, core.IsValidation(err))

	boom := errors.New("quota exceeded")
	_, err = ExportToSheet(context.Background(), &fakeValuesWriter{err: boom}, "id", "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	got, err := Credentials(`{"type":"service_account"}`, "/ignored")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(got))

	file := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"from":"file"}`), 0o600))
	got, err = Credentials("", file)
	require.NoError(t, err)
	assert.Equal(t, `{"from":"file"}`, string(got))

	_, err = Credentials("", "")
	assert.Error(t, err)
}
