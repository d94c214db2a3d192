package apperror

import (
	"fmt"
	"net/http"
	"time"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"` // Machine-readable extras (e.g. cooldown_remaining)
	Err        error          `json:"-"`                 // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails attaches machine-readable detail fields and returns the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// ---- Claim Business Logic (CLM) ----

// ErrCooldownActive is returned when the per-faucet cooldown has not elapsed.
// The remaining duration rides in Details so clients can schedule a retry
// without polling.
func ErrCooldownActive(remaining time.Duration) *AppError {
	return New("CLM_001", "Cooldown period active, please wait before next claim", http.StatusTooManyRequests).
		WithDetails(map[string]any{"cooldown_remaining": int64(remaining.Seconds())})
}

func ErrPriceUnavailable() *AppError {
	return New("CLM_002", "Price data not available, please try again shortly", http.StatusServiceUnavailable)
}

func ErrExternalFaucet(detail string) *AppError {
	return New("CLM_003", "External faucet rejected the claim", http.StatusBadGateway).
		WithDetails(map[string]any{"faucet_error": detail})
}

func ErrUnknownFaucet(faucetType string) *AppError {
	return New("CLM_004", fmt.Sprintf("Unknown faucet type: %s", faucetType), http.StatusBadRequest)
}

// ErrAmbiguousOutcome is returned when the upstream call timed out after the
// request may already have been delivered. The claim is recorded as failed
// and flagged for reconciliation; the cooldown still applies.
func ErrAmbiguousOutcome() *AppError {
	return New("CLM_006", "Claim outcome could not be confirmed, flagged for reconciliation", http.StatusBadGateway)
}

func ErrNotFound(entity string) *AppError {
	return New("CLM_005", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrPersistenceFailure marks the severe case where the external faucet call
// succeeded but the ledger write failed. The caller must log it loudly and
// must not re-dispatch the external call; replaying the record with the same
// request id is the only safe recovery.
func ErrPersistenceFailure(err error) *AppError {
	return Wrap("SYS_002", "Claim could not be recorded, do not retry the faucet call", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
