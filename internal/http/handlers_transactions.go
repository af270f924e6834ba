package http

import (
	"fmt"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/export"
	applog "ledger/internal/log"
)

func transactionFields(t core.Transaction) applog.LogFields {
	return applog.NewFields().WithTransaction(t.Date.Key(), t.Amount, string(t.Type), t.CategoryID, t.LabelID)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	f, err := ParseFilter(query)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	p, err := ParsePage(query)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page, err := s.transactions.List(ctx, mustOwner(r), f, p.Page, p.Limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	NewJSONResponse().Body(page).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), mustOwner(r), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	in, err := req.toNew()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	t, err := s.transactions.Create(ctx, ownerID, in)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpCreate, "transaction", ownerID, t.ID, transactionFields(t))
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+t.ID).
		Body(t).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)
	id := r.PathValue("id")

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	t, err := s.transactions.Update(ctx, ownerID, id, patch)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpUpdate, "transaction", ownerID, id, transactionFields(t))
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)
	id := r.PathValue("id")

	if err := s.transactions.Delete(ctx, ownerID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpDelete, "transaction", ownerID, id)
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}

// handleExportCSV streams the filtered set, newest first.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	txs, err := s.transactions.ListAll(ctx, mustOwner(r), f)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transactions.csv"))
	if err := export.WriteCSV(w, txs); err != nil {
		// Headers are gone by now; all that is left is to log.
		s.logger.LogError(ctx, "CSV export failed", err, applog.ComponentExport, applog.OpExport, applog.NewFields().WithOwner(mustOwner(r)))
	}
}
