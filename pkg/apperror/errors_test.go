package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("INSUFFICIENT_FUNDS", "Card balance does not cover the amount", http.StatusPaymentRequired)
	assert.Equal(t, "[INSUFFICIENT_FUNDS] Card balance does not cover the amount", e.Error())

	wrapped := Wrap("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError, errors.New("db down"))
	assert.Contains(t, wrapped.Error(), "db down")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	e := InternalError(fmt.Errorf("begin tx: %w", inner))

	assert.True(t, errors.Is(e, inner))

	var appErr *AppError
	require.True(t, errors.As(error(e), &appErr))
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		httpStatus int
	}{
		{ErrCardNotFound(), "CARD_NOT_FOUND", http.StatusNotFound},
		{ErrCardNotActive(), "CARD_NOT_ACTIVE", http.StatusForbidden},
		{ErrAlreadyIssued(), "ALREADY_ISSUED", http.StatusConflict},
		{ErrInsufficientFunds(), "INSUFFICIENT_FUNDS", http.StatusPaymentRequired},
		{ErrInvalidAmount(), "INVALID_AMOUNT", http.StatusBadRequest},
		{ErrItemUnavailable("x"), "ITEM_UNAVAILABLE", http.StatusUnprocessableEntity},
		{ErrTimeout(), "TIMEOUT", http.StatusGatewayTimeout},
		{ErrReconcileMismatch("04A1"), "RECONCILE_MISMATCH", http.StatusConflict},
		{InternalError(errors.New("x")), "INTERNAL_ERROR", http.StatusInternalServerError},
		{Validation("empty cart"), "VALIDATION", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}
