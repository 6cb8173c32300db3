package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"felicityevents/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeForbidden     = "forbidden"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "conflict"
	ErrCodeInternalError = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Data is nil, Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{Data: data, Error: nil})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// conflictErrors are business-rule violations reported as 409: the request
// was well-formed but the current state of the resource refuses it.
var conflictErrors = []error{
	domain.ErrDuplicateEmail,
	domain.ErrAlreadyRegistered,
	domain.ErrEventFull,
	domain.ErrInsufficientStock,
	domain.ErrOversold,
	domain.ErrNotCancellable,
	domain.ErrPaymentCompleted,
	domain.ErrNotAwaitingApproval,
	domain.ErrEventLocked,
	domain.ErrHasActiveRegistrations,
	domain.ErrTicketIDConflict,
}

// badRequestErrors are rejected inputs reported as 400.
var badRequestErrors = []error{
	domain.ErrInvalidInput,
	domain.ErrNotPublished,
	domain.ErrRegistrationClosed,
	domain.ErrNotEligible,
	domain.ErrVariantRequired,
	domain.ErrVariantNotFound,
	domain.ErrPurchaseLimitExceeded,
	domain.ErrWrongEvent,
	domain.ErrInvalidCredential,
}

// WriteServiceError translates a service error into the API envelope.
// Sentinel business errors map to their HTTP status; anything unrecognized
// is logged and reported as a 500 without leaking internals.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, domain.ErrInvalidLogin):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAccountInactive):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case matchesAny(err, conflictErrors):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case matchesAny(err, badRequestErrors):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		var wrongStatus *domain.WrongStatusError
		if errors.As(err, &wrongStatus) {
			WriteJSONError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
