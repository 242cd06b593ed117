package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"paycore/internal/domain/errs"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type conflictDetails struct {
	Entity        string `json:"entity,omitempty"`
	ID            string `json:"id,omitempty"`
	CurrentStatus string `json:"currentStatus,omitempty"`
	Action        string `json:"action,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

// FailErr maps a domain error onto a status code and writes it. Validation
// issues and the current state of a conflicting record are echoed in details.
func FailErr(w http.ResponseWriter, err error, requestID string) {
	status, body := Classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "err", err, "requestId", requestID)
	}
	WriteJSON(w, status, Envelope{Success: false, Error: body, RequestID: requestID})
}

// Classify returns the HTTP status and error body for err.
func Classify(err error) (int, *Error) {
	var validation *errs.ValidationError
	var conflict *errs.StateConflictError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, &Error{Code: "validation_error", Message: err.Error(), Details: validation.Issues}
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, &Error{Code: "validation_error", Message: err.Error()}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, &Error{Code: "not_found", Message: err.Error()}
	case errors.Is(err, errs.ErrRetryExhausted):
		return http.StatusUnprocessableEntity, &Error{Code: "retry_exhausted", Message: err.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, &Error{Code: "state_conflict", Message: err.Error(), Details: conflictDetails{
			Entity:        conflict.Entity,
			ID:            conflict.ID,
			CurrentStatus: conflict.Current,
			Action:        conflict.Action,
		}}
	case errors.Is(err, errs.ErrConcurrentModification):
		return http.StatusConflict, &Error{Code: "concurrent_modification", Message: err.Error()}
	case errors.Is(err, errs.ErrStateConflict):
		return http.StatusConflict, &Error{Code: "state_conflict", Message: err.Error()}
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, &Error{Code: "upstream_unavailable", Message: err.Error()}
	default:
		return http.StatusInternalServerError, &Error{Code: "internal_error", Message: "internal server error"}
	}
}
