package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/catalog"
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ready(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "storage not ready", "not_ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

type categoryResponse struct {
	ID    uuid.UUID `json:"id"`
	Code  string    `json:"code"`
	Label string    `json:"label"`
	Kind  string    `json:"kind"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats := catalog.All()
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse{ID: c.ID, Code: c.Code, Label: c.Label, Kind: string(c.Kind)})
	}
	toJSON(w, http.StatusOK, out)
}
