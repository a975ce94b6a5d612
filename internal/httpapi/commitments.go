package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/solerv/finledger/internal/finance"
	"github.com/solerv/finledger/internal/service/schedule"
)

func toCommitmentResponse(c finance.Commitment) commitmentResponse {
	return commitmentResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		DestAccountID:  c.DestAccountID,
		Description:    c.Description,
		Direction:      string(c.Direction),
		Currency:       c.Currency,
		AmountMinor:    minorOf(c.Amount),
		Frequency:      string(c.Frequency),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		LastEvent:      c.LastEvent,
		NextOccurrence: schedule.NextOccurrence(c),
		Active:         c.Active,
		AutoGenerate:   c.AutoGenerate,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (s *Server) postCommitment(w http.ResponseWriter, r *http.Request) {
	var req commitmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.sched.Create(r.Context(), c)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCommitmentResponse(created))
}

func (s *Server) listCommitments(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	commitments, err := s.sched.List(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]commitmentResponse, 0, len(commitments))
	for _, c := range commitments {
		out = append(out, toCommitmentResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getCommitment(w http.ResponseWriter, r *http.Request) {
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
	c, err := s.sched.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCommitmentResponse(c))
}

func (s *Server) updateCommitment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req commitmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	c.ID = id
	updated, err := s.sched.Update(r.Context(), c)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCommitmentResponse(updated))
}

type occurrenceResponse struct {
	Commitment commitmentResponse `json:"commitment"`
	Next       time.Time          `json:"next"`
	DaysUntil  int                `json:"days_until"`
	Due        bool               `json:"due"`
}

func (s *Server) upcomingCommitments(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(w, "invalid days")
			return
		}
		days = n
	}
	occurrences, err := s.sched.Upcoming(r.Context(), userID, time.Now().UTC(), days)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]occurrenceResponse, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, occurrenceResponse{
			Commitment: toCommitmentResponse(o.Commitment),
			Next:       o.Next,
			DaysUntil:  o.DaysUntil,
			Due:        o.Due,
		})
	}
	toJSON(w, http.StatusOK, out)
}

type runDueRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) runDueCommitments(w http.ResponseWriter, r *http.Request) {
	var req runDueRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	userID, err := parseUUID(req.UserID, "user_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	n, err := s.sched.RunDue(r.Context(), userID, time.Now().UTC())
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]int{"generated": n})
}
