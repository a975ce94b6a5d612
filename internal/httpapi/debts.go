package httpapi

import (
	"net/http"
	"strconv"
	"time"
)

func (s *Server) postDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	d, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.debts.CreateDebt(r.Context(), d)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toDebtResponse(created))
}

func (s *Server) listDebts(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	debts, err := s.debts.ListDebts(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebtResponse(d))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getDebt(w http.ResponseWriter, r *http.Request) {
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
	d, err := s.debts.GetDebt(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toDebtResponse(d))
}

func (s *Server) updateDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req debtRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	d, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	d.ID = id
	updated, err := s.debts.UpdateDebt(r.Context(), d)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toDebtResponse(updated))
}

type amortizationResponse struct {
	DebtID                string `json:"debt_id"`
	Currency              string `json:"currency"`
	RequestedMinor        int64  `json:"requested_minor"`
	TotalMinor            int64  `json:"total_minor"`
	PrincipalMinor        int64  `json:"principal_minor"`
	InterestMinor         int64  `json:"interest_minor"`
	ResultingBalanceMinor int64  `json:"resulting_balance_minor"`
}

// getAmortization previews the principal/interest split for a requested
// payment; it writes nothing.
func (s *Server) getAmortization(w http.ResponseWriter, r *http.Request) {
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
	rawAmount := r.URL.Query().Get("amount_minor")
	minor, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		badRequest(w, "invalid amount_minor")
		return
	}
	d, err := s.debts.GetDebt(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	requested, err := amountFromMinor(d.Currency, minor)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	split, err := s.debts.AmortizationSplit(r.Context(), userID, id, requested)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, amortizationResponse{
		DebtID:                id.String(),
		Currency:              d.Currency,
		RequestedMinor:        minor,
		TotalMinor:            minorOf(split.Total),
		PrincipalMinor:        minorOf(split.Principal),
		InterestMinor:         minorOf(split.Interest),
		ResultingBalanceMinor: minorOf(split.Resulting),
	})
}

// --- movements ---

func (s *Server) postDebtMovement(w http.ResponseWriter, r *http.Request) {
	var req debtMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	m, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if m.Date.IsZero() {
		m.Date = time.Now().UTC()
	}
	created, err := s.debts.CreateMovement(r.Context(), m)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toDebtMovementResponse(created))
}

func (s *Server) listDebtMovements(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	movements, err := s.debts.ListMovements(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]debtMovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toDebtMovementResponse(m))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getDebtMovement(w http.ResponseWriter, r *http.Request) {
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
	m, err := s.debts.GetMovement(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toDebtMovementResponse(m))
}

func (s *Server) updateDebtMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req debtMovementRequest
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
	updated, err := s.debts.EditMovement(r.Context(), m)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toDebtMovementResponse(updated))
}

func (s *Server) deleteDebtMovement(w http.ResponseWriter, r *http.Request) {
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
	if err := s.debts.DeleteMovement(r.Context(), userID, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
