package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidation("bad input", nil), http.StatusBadRequest},
		{NewUnauthorized("no token", nil), http.StatusUnauthorized},
		{NewForbidden("not yours"), http.StatusForbidden},
		{NewNotFound("clinic", nil), http.StatusNotFound},
		{NewConflict("slot taken", nil), http.StatusConflict},
		{NewTooLarge("body too large"), http.StatusRequestEntityTooLarge},
		{NewRateLimited(), http.StatusTooManyRequests},
		{NewInternal(stderrors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAppError_Wrapping(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("create booking: %w", NewInternal(cause))

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "internal server error", appErr.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NewNotFound("booking", nil)))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
	assert.True(t, Is(NewConflict("taken", nil), KindConflict))
	assert.False(t, Is(nil, KindInternal))
}

func TestNewNotFound_Message(t *testing.T) {
	assert.Equal(t, "clinic not found", NewNotFound("clinic", nil).Error())
	assert.Equal(t, "clinic not found: sql: no rows", NewNotFound("clinic", stderrors.New("sql: no rows")).Error())
}
