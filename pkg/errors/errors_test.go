package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- AppError behavior ---

func TestAppError_ErrorString(t *testing.T) {
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "lookup failed", Err: fmt.Errorf("db down")}
	assert.Equal(t, "INTERNAL_ERROR: lookup failed: db down", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "group missing"}
	assert.Equal(t, "NOT_FOUND: group missing", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
	assert.Nil(t, (&AppError{Code: "X"}).Unwrap())
}

// --- Constructors ---

func TestInvalidPincode(t *testing.T) {
	err := InvalidPincode("999999")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_PINCODE", err.Code)
	assert.Contains(t, err.Message, "999999")
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidPincode))
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("breaker open")
	err := ServiceUnavailable("location service", cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
}

func TestNotFound(t *testing.T) {
	err := NotFound("location group", "lg-1")
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "lg-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- HTTPStatus ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Conflict("dup"), http.StatusConflict},
		{"wrapped app error", fmt.Errorf("outer: %w", InvalidInput("bad")), http.StatusBadRequest},
		{"sentinel not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel pincode", ErrInvalidPincode, http.StatusBadRequest},
		{"sentinel unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"internal", Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "resolve pincode")
	assert.Equal(t, "resolve pincode: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}
