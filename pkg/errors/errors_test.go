package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("db lost")}
	assert.Equal(t, "INTERNAL_ERROR: boom: db lost", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "missing"}
	assert.Equal(t, "NOT_FOUND: missing", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	nf := NotFound("user", "u1")
	assert.Equal(t, http.StatusNotFound, nf.Status)
	assert.Equal(t, "user u1 not found", nf.Message)
	assert.ErrorIs(t, nf, ErrNotFound)

	bad := InvalidInput("limit must be positive")
	assert.Equal(t, http.StatusBadRequest, bad.Status)
	assert.ErrorIs(t, bad, ErrInvalidInput)

	cause := errors.New("pool exhausted")
	internal := Internal(cause)
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.ErrorIs(t, internal, cause)
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ServiceUnavailable("preference store unavailable", cause)

	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.ErrorIs(t, err, cause)

	assert.ErrorIs(t, ServiceUnavailable("down", nil), ErrServiceUnavail)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("x"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("handler: %w", NotFound("user", "u1")), http.StatusNotFound},
		{"sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"unavailable sentinel", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"plain", errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}
