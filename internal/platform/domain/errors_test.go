package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", NewValidationError("bad input"), KindValidation},
		{"not found", NewNotFoundError("Trip", "abc"), KindNotFound},
		{"conflict", NewConflictError("version mismatch"), KindConflict},
		{"invalid state", NewInvalidStateError("started", "requested"), KindInvalidState},
		{"forbidden", NewForbiddenError("no"), KindForbidden},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOf_SurvivesWrapping(t *testing.T) {
	err := NewConflictError("version mismatch")

	wrapped := fmt.Errorf("update trip: %w", err)
	assert.Equal(t, KindConflict, KindOf(wrapped))

	doubleWrapped := fmt.Errorf("handle request: %w", wrapped)
	assert.Equal(t, KindConflict, KindOf(doubleWrapped))
}

func TestIsNotFound_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("load driver: %w", NewNotFoundError("Driver", "xyz"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("boom")))
}
