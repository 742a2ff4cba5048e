package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// ---- Card registry ----

func ErrCardNotFound() *AppError {
	return New("CARD_NOT_FOUND", "Card is not registered", http.StatusNotFound)
}

func ErrCardNotActive() *AppError {
	return New("CARD_NOT_ACTIVE", "Card is blocked or inactive", http.StatusForbidden)
}

func ErrAlreadyIssued() *AppError {
	return New("ALREADY_ISSUED", "Cardholder already holds an active card", http.StatusConflict)
}

// ---- Ledger & purchase ----

func ErrInsufficientFunds() *AppError {
	return New("INSUFFICIENT_FUNDS", "Card balance does not cover the amount", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("INVALID_AMOUNT", "Amount is out of the accepted range", http.StatusBadRequest)
}

func ErrItemUnavailable(itemID string) *AppError {
	return New("ITEM_UNAVAILABLE", fmt.Sprintf("Item %s is unknown or not sellable", itemID), http.StatusUnprocessableEntity)
}

func ErrTimeout() *AppError {
	return New("TIMEOUT", "Transaction processing timed out", http.StatusGatewayTimeout)
}

// ErrReconcileMismatch flags a ledger whose replayed history does not
// reproduce the stored balance. Writes against the card are halted.
func ErrReconcileMismatch(cardUID string) *AppError {
	return New("RECONCILE_MISMATCH", fmt.Sprintf("Ledger history for card %s does not reproduce its balance", cardUID), http.StatusConflict)
}

// ---- System & infrastructure ----

// InternalError wraps an internal error as INTERNAL_ERROR.
func InternalError(err error) *AppError {
	return Wrap("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a validation reject for malformed requests,
// reported before any ledger interaction.
func Validation(message string) *AppError {
	return New("VALIDATION", message, http.StatusBadRequest)
}
