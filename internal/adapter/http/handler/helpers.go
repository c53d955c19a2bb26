package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeNotFound           = "not_found"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeConflict           = "conflict"
	CodeDuplicateRequest   = "duplicate_request"
	CodeLockTimeout        = "lock_timeout"
	CodeLedgerInconsistent = "ledger_inconsistent"
	CodeInternal           = "internal_error"
)

// lockRetryAfter is the Retry-After hint, in seconds, for lock timeouts.
const lockRetryAfter = 1

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it. txn, when set, is the
// FAILED record of a rejected money movement and is returned to the caller.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, message string, txn *domain.Transaction) {
	status, code := mapDomainError(err)

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
	}

	if errors.Is(err, domain.ErrLockTimeout) {
		w.Header().Set("Retry-After", strconv.Itoa(lockRetryAfter))
	}

	resp := dto.ErrorResponse{
		Error:   message,
		Code:    code,
		Message: err.Error(),
	}
	if txn != nil {
		resp.Transaction = dto.TransactionFromDomain(txn)
	}

	writeJSON(w, status, resp)
}

// mapDomainError maps domain errors to HTTP status codes and error codes.
func mapDomainError(err error) (int, string) {
	var validationErr *dto.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, domain.FailureInsufficientFunds
	case errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusUnprocessableEntity, domain.FailureAccountNotActive
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity, domain.FailureCurrencyMismatch
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDestinationNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidIdempotencyKey),
		errors.Is(err, domain.ErrInvalidCursor),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidOwner):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrIdempotencyKeyExists):
		return http.StatusConflict, CodeDuplicateRequest
	case errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrAccountNotEmpty),
		errors.Is(err, domain.ErrAccountNumberTaken):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, usecase.ErrInconsistentLedger):
		return http.StatusConflict, CodeLedgerInconsistent
	case errors.Is(err, domain.ErrLockTimeout):
		return http.StatusServiceUnavailable, CodeLockTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// decodeJSON decodes and validates a request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return &dto.ValidationError{Fields: []string{"body: " + err.Error()}}
	}

	return dto.Validate(dst)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
