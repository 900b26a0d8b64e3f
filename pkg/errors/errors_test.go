package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPolicyFor(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, PolicyFor(code).Status, code)
	}
	assert.Equal(t, http.StatusInternalServerError, PolicyFor("SOMETHING_ELSE").Status)
	assert.True(t, PolicyFor(CodeStateConflict).ShowDetails)
	assert.False(t, PolicyFor(CodeForbidden).ShowDetails)
}

func TestMessageForHidesInternalText(t *testing.T) {
	internal := Wrap(CodeInternal, stdErrors.New("pq: relation missing"), "insert order")
	assert.Equal(t, "internal server error", PolicyFor(CodeInternal).MessageFor(internal))

	conflict := New(CodeStateConflict, "choose a shipping method first")
	assert.Equal(t, "choose a shipping method first", PolicyFor(CodeStateConflict).MessageFor(conflict))

	redis := New(CodeDependency, "redis: connection refused at 10.0.0.3")
	assert.Equal(t, "dependency unavailable", PolicyFor(CodeDependency).MessageFor(redis))

	empty := New(CodeNotFound, "")
	assert.Equal(t, "resource not found", PolicyFor(CodeNotFound).MessageFor(empty))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "update order")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: update order: boom", wrapped.Error())

	details := map[string]any{"field": "zip_code"}
	typed := New(CodeValidation, "invalid zip").WithDetails(details)
	assert.Equal(t, details, typed.Details())
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	typed := New(CodeStateConflict, "address required").WithDetails(map[string]any{"step": "address"})
	wrapped := fmt.Errorf("create preference: %w", typed)
	assert.True(t, IsCode(wrapped, CodeStateConflict))
	assert.False(t, IsCode(wrapped, CodeValidation))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
	assert.Nil(t, As(nil))
}

func TestLogFieldsIncludesPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_preference_id", TableName: "orders"}
	err := Wrap(CodeConflict, fmt.Errorf("insert: %w", pgErr), "create order")

	fields := LogFields(err)
	assert.Equal(t, "CONFLICT", fields["error_code"])
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "idx_orders_preference_id", fields["pg_constraint"])
	assert.NotContains(t, fields, "pg_detail")
	assert.Len(t, fields["error_chain"], 3)
}
