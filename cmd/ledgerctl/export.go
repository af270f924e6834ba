package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// filterFlags mirror the query parameters of GET /api/transactions.
type filterFlags struct {
	owner    string
	typ      string
	category string
	label    string
	start    string
	end      string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner (user id) whose transactions are exported")
	cmd.Flags().StringVar(&f.typ, "type", "", "Income or Expenses")
	cmd.Flags().StringVar(&f.category, "category", "", "category id")
	cmd.Flags().StringVar(&f.label, "label", "", "label id")
	cmd.Flags().StringVar(&f.start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("owner")
}

func (f *filterFlags) build() (core.TransactionFilter, error) {
	filter := core.TransactionFilter{
		CategoryID: strings.TrimSpace(f.category),
		LabelID:    strings.TrimSpace(f.label),
	}
	if v := strings.TrimSpace(f.typ); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if v := strings.TrimSpace(f.start); v != "" {
		d, err := core.ParseDateKey(v)
		if err != nil {
			return filter, core.NewValidationError("start", "must be a valid YYYY-MM-DD date")
		}
		filter.StartDate = &d
	}
	if v := strings.TrimSpace(f.end); v != "" {
		d, err := core.ParseDateKey(v)
		if err != nil {
			return filter, core.NewValidationError("end", "must be a valid YYYY-MM-DD date")
		}
		filter.EndDate = &d
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, core.NewValidationError("end", "must not be before start")
	}
	return filter, nil
}

// load returns every matching transaction of an existing owner.
func (f *filterFlags) load(cmd *cobra.Command, repo *storage.SQLiteRepository) ([]core.Transaction, error) {
	filter, err := f.build()
	if err != nil {
		return nil, err
	}
	owner := strings.TrimSpace(f.owner)
	if _, err := repo.GetUser(cmd.Context(), owner); err != nil {
		return nil, err
	}
	return services.NewTransactionService(repo, nil, 0).ListAll(cmd.Context(), owner, filter)
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an owner's transactions",
	}
	cmd.AddCommand(newExportCSVCmd(opts), newExportSheetCmd(opts))
	return cmd
}

func newExportCSVCmd(opts *rootOptions) *cobra.Command {
	var (
		filters filterFlags
		out     string
	)

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write transactions as CSV to a file or stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			txs, err := filters.load(cmd, repo)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.WriteCSV(w, txs); err != nil {
				return err
			}
			slog.Info("CSV export written", "owner_id", filters.owner, "count", len(txs), "out", out)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newExportSheetCmd(opts *rootOptions) *cobra.Command {
	var (
		filters       filterFlags
		spreadsheetID string
		sheetName     string
	)

	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Overwrite a Google Sheets tab with the transactions",
		Long: `Overwrite a Google Sheets tab with the transactions.
Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
or GOOGLE_APPLICATION_CREDENTIALS, in that order. The spreadsheet must be
shared with the service account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.config()
			creds, err := export.Credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
			if err != nil {
				return err
			}

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			txs, err := filters.load(cmd, repo)
			if err != nil {
				return err
			}

			client, err := export.NewSheetsClient(cmd.Context(), creds)
			if err != nil {
				return err
			}
			ref, err := export.ExportToSheet(cmd.Context(), client, spreadsheetID, sheetName, txs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txs), ref)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "target spreadsheet id")
	cmd.Flags().StringVar(&sheetName, "sheet", "Transactions", "tab to overwrite")
	_ = cmd.MarkFlagRequired("spreadsheet-id")
	return cmd
}
