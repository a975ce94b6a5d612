package httpapi

import (
	"net/http"
)

func (s *Server) postSubAccount(w http.ResponseWriter, r *http.Request) {
	var req subAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	sa, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.subs.CreateSubAccount(r.Context(), sa)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toSubAccountResponse(created))
}

func (s *Server) listSubAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	subs, err := s.subs.ListSubAccounts(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]subAccountResponse, 0, len(subs))
	for _, sa := range subs {
		out = append(out, toSubAccountResponse(sa))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getSubAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	sa, err := s.subs.GetSubAccount(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSubAccountResponse(sa))
}

func (s *Server) updateSubAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req subAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	sa, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	sa.ID = id
	updated, err := s.subs.UpdateSubAccount(r.Context(), sa)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSubAccountResponse(updated))
}

func (s *Server) deactivateSubAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.subs.Deactivate(r.Context(), userID, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- movements ---

func (s *Server) postSubMovement(w http.ResponseWriter, r *http.Request) {
	var req subMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	m, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.subs.CreateMovement(r.Context(), m)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toSubMovementResponse(created))
}

func (s *Server) listSubMovements(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	movements, err := s.subs.ListMovements(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]subMovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toSubMovementResponse(m))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getSubMovement(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	m, err := s.subs.GetMovement(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSubMovementResponse(m))
}

func (s *Server) updateSubMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req subMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	m, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	m.ID = id
	updated, err := s.subs.EditMovement(r.Context(), m)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSubMovementResponse(updated))
}

func (s *Server) deleteSubMovement(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.subs.DeleteMovement(r.Context(), userID, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
