package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Profile(r.Context(), mustOwner(r))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.Username == nil {
		writeError(ctx, w, core.NewValidationError("username", "is required"))
		return
	}
	u, err := s.users.UpdateProfile(ctx, ownerID, *req.Username)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	s.identity.Refresh(ownerID, u)
	s.logger.LogWrite(ctx, applog.OpUpdate, "user", ownerID, u.ID)
	NewJSONResponse().Body(u).Write(w)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := mustOwner(r)

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := s.users.ChangePassword(ctx, ownerID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(ctx, w, err)
		return
	}
	s.logger.LogWrite(ctx, applog.OpUpdate, "password", ownerID, ownerID)
	NewJSONResponse().Message("Password changed successfully").Write(w)
}
