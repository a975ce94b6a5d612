package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/solerv/finledger/internal/service/plan"
)

func (s *Server) postPlanItem(w http.ResponseWriter, r *http.Request) {
	var req planItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	item, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.plans.CreateItem(r.Context(), item)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toPlanItemResponse(created))
}

func (s *Server) listPlanItems(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	items, err := s.plans.ListItems(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]planItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toPlanItemResponse(item))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getPlanItem(w http.ResponseWriter, r *http.Request) {
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
	item, err := s.plans.GetItem(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toPlanItemResponse(item))
}

func (s *Server) updatePlanItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req planItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	item, err := req.toDomain()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	item.ID = id
	updated, err := s.plans.UpdateItem(r.Context(), item)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toPlanItemResponse(updated))
}

func (s *Server) deletePlanItem(w http.ResponseWriter, r *http.Request) {
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
	if err := s.plans.DeleteItem(r.Context(), userID, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type executeRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) executePlanItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	userID, err := parseUUID(req.UserID, "user_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	item, err := s.plans.ExecuteItem(r.Context(), userID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toPlanItemResponse(item))
}

type itemResultResponse struct {
	ItemID        uuid.UUID  `json:"item_id"`
	Name          string     `json:"name"`
	Executed      bool       `json:"executed"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	Error         string     `json:"error,omitempty"`
	Code          string     `json:"code,omitempty"`
}

func toItemResultResponse(res plan.ItemResult) itemResultResponse {
	out := itemResultResponse{
		ItemID:        res.ItemID,
		Name:          res.Name,
		Executed:      res.Executed,
		TransactionID: res.TransactionID,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		out.Code = errCode(res.Err)
	}
	return out
}

func (s *Server) executePlan(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	userID, err := parseUUID(req.UserID, "user_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	results, err := s.plans.ExecuteAll(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]itemResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toItemResultResponse(res))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) resetPlan(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	userID, err := parseUUID(req.UserID, "user_id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	n, err := s.plans.ResetPeriod(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, map[string]int{"reset": n})
}

type planSummaryResponse struct {
	PendingCount      int   `json:"pending_count"`
	ExecutedCount     int   `json:"executed_count"`
	PendingTotalMinor int64 `json:"pending_total_minor"`
	AvailableMinor    int64 `json:"available_minor"`
	CanExecuteAll     bool  `json:"can_execute_all"`
}

func (s *Server) planSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	sum, err := s.plans.PlanSummary(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	resp := planSummaryResponse{
		PendingCount:  sum.PendingCount,
		ExecutedCount: sum.ExecutedCount,
		CanExecuteAll: sum.CanExecuteAll,
	}
	if sum.PendingCount > 0 {
		resp.PendingTotalMinor = minorOf(sum.PendingTotal)
		resp.AvailableMinor = minorOf(sum.Available)
	}
	toJSON(w, http.StatusOK, resp)
}
