package httpapi

import (
	"errors"
	"net/http"

	"github.com/solerv/finledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }

// errCode maps a domain error to its wire code without writing a response.
func errCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrImmutable):
		return "immutable_field"
	case errors.Is(err, errs.ErrInvalid), errors.Is(err, errs.ErrUnprocessable):
		return "validation_error"
	case errors.Is(err, errs.ErrConsistency):
		return "consistency_error"
	default:
		return ""
	}
}

// respondErr maps domain sentinel errors to HTTP statuses and codes.
func respondErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, msg, "not_found")
	case errors.Is(err, errs.ErrInsufficientFunds):
		writeErr(w, http.StatusConflict, msg, "insufficient_funds")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrImmutable):
		writeErr(w, http.StatusConflict, msg, "immutable_field")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, msg, "forbidden")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusUnprocessableEntity, msg, "validation_error")
	case errors.Is(err, errs.ErrUnprocessable):
		writeErr(w, http.StatusUnprocessableEntity, msg, "validation_error")
	case errors.Is(err, errs.ErrConsistency):
		writeErr(w, http.StatusInternalServerError, msg, "consistency_error")
	default:
		writeErr(w, http.StatusInternalServerError, msg, "")
	}
}
