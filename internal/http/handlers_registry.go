package http

import (
	"net/http"

	applog "ledger/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.registry.ListCategories(r.Context(), mustOwner(r), r.URL.Query().Get("type"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	c, err := s.registry.CreateCategory(ctx, ownerID, req.toInput())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpCreate, "category", ownerID, c.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	c, err := s.registry.UpdateCategory(ctx, ownerID, r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpUpdate, "category", ownerID, c.ID)
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)
	id := r.PathValue("id")

	if err := s.registry.DeleteCategory(ctx, ownerID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpDelete, "category", ownerID, id)
	NewJSONResponse().Message("Category deleted successfully").Write(w)
}

func (s *Server) handleListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.registry.ListLabels(r.Context(), mustOwner(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(labels).Write(w)
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req labelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	l, err := s.registry.CreateLabel(ctx, ownerID, req.toInput())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpCreate, "label", ownerID, l.ID)
	NewJSONResponse().Status(http.StatusCreated).Body(l).Write(w)
}

func (s *Server) handleUpdateLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req labelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	l, err := s.registry.UpdateLabel(ctx, ownerID, r.PathValue("id"), req.toPatch())
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpUpdate, "label", ownerID, l.ID)
	NewJSONResponse().Body(l).Write(w)
}

func (s *Server) handleDeleteLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)
	id := r.PathValue("id")

	if err := s.registry.DeleteLabel(ctx, ownerID, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpDelete, "label", ownerID, id)
	NewJSONResponse().Message("Label deleted successfully").Write(w)
}
