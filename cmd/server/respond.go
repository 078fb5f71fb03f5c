package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/stgrky/d2d-sales-calculator/internal/financing"
	"github.com/stgrky/d2d-sales-calculator/internal/partner"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/session"
	"github.com/stgrky/d2d-sales-calculator/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missingFields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response failed status=%d err=%v", status, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps domain errors onto HTTP statuses. Unrecognized errors are
// logged and reported as a 500 with fallback as the message.
func writeFailure(w http.ResponseWriter, err error, fallback string) {
	var missing *quote.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: missing.Error(), MissingFields: missing.Fields})
	case errors.Is(err, session.ErrStale), errors.Is(err, session.ErrSaveInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrNoSuchRow),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, partner.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, partner.ErrQuotingDisabled), errors.Is(err, session.ErrForeignQuote):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, partner.ErrReservedCode), errors.Is(err, financing.ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("request failed msg=%q err=%v", fallback, err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be omitted,
// including an empty chunked body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
