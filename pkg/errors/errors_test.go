package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{Validation("bad input", nil), http.StatusBadRequest},
		{InvalidReference("doctor", nil), http.StatusBadRequest},
		{PermissionDenied(""), http.StatusForbidden},
		{InvalidTransition("already completed"), http.StatusConflict},
		{AlreadyInState("canceled"), http.StatusOK},
		{NotFound("appointment", nil), http.StatusNotFound},
		{Storage("disk full", nil), http.StatusInternalServerError},
		{Persistence("insert failed", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Message)
	}
}

func TestExpected(t *testing.T) {
	assert.True(t, AlreadyInState("canceled").Expected())
	assert.True(t, NotFound("patient", nil).Expected())
	assert.False(t, Storage("disk full", nil).Expected())
	assert.False(t, Persistence("insert failed", nil).Expected())
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NotFound("patient", nil)
	wrapped := fmt.Errorf("resolving reference: %w", inner)

	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindValidation))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Persistence("insert failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPermissionDeniedDefaultMessage(t *testing.T) {
	assert.Equal(t, "permission denied", PermissionDenied("").Message)
	assert.Equal(t, "not yours", PermissionDenied("not yours").Message)
}
