package http

import (
	"encoding/json"
	"net/http"

	"finledger/internal/core"
)

type roleUpdateRequest struct {
	Role core.Role `json:"role"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, meta, err := s.userService.List(r.Context(), identityFrom(r.Context()),
		queryInt(r, "page"), queryInt(r, "perPage"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: users, Meta: meta})
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, core.ErrNotFound)
		return
	}

	var req roleUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid request body"})
		return
	}

	user, err := s.userService.UpdateRole(r.Context(), identityFrom(r.Context()), id, req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, core.ErrNotFound)
		return
	}

	if err := s.userService.Delete(r.Context(), identityFrom(r.Context()), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
