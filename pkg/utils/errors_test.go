package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewError(CodeTicketNotFound, "ticket not found")
	assert.Contains(t, err.Error(), "4041")
	assert.Contains(t, err.Error(), "ticket not found")

	wrapped := WrapError(errors.New("redis: nil"), CodeRedisError, "redis error")
	assert.Contains(t, wrapped.Error(), "redis: nil")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := WrapError(inner, CodeDatabaseError, "database error")
	assert.ErrorIs(t, err, inner)
}

func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("join failed: %w", ErrAlreadyQueued)
	assert.ErrorIs(t, wrapped, ErrAlreadyQueued)
	assert.NotErrorIs(t, wrapped, ErrTicketNotFound)
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, CodeStockExhausted, GetErrorCode(ErrStockExhausted))
	assert.Equal(t, CodeInternalError, GetErrorCode(errors.New("plain error")))

	wrapped := fmt.Errorf("allocator: %w", ErrOrderConfirmFailed)
	assert.Equal(t, CodeOrderConfirmFailed, GetErrorCode(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ResponseCode
		want int
	}{
		{CodeSuccess, http.StatusOK},
		{CodeProductNotFound, http.StatusNotFound},
		{CodeTicketNotFound, http.StatusNotFound},
		{CodeStockExhausted, http.StatusConflict},
		{CodeAlreadyQueued, http.StatusConflict},
		{CodeOrderBusy, http.StatusTooManyRequests},
		{CodeRateLimit, http.StatusTooManyRequests},
		{CodeOrderConfirmFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), "code %d", tt.code)
	}
}
