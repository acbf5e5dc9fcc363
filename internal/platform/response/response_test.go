package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

func TestPaginated_Envelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []string{"a", "b"}, 42, 2, 20)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Items []string `json:"items"`
			Total int64    `json:"total"`
			Page  int      `json:"page"`
			Limit int      `json:"limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"a", "b"}, body.Data.Items)
	assert.Equal(t, int64(42), body.Data.Total)
	assert.Equal(t, 2, body.Data.Page)
	assert.Equal(t, 20, body.Data.Limit)
}

func TestError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("bad"), http.StatusBadRequest},
		{"not found", domain.NewNotFoundError("Trip", "abc"), http.StatusNotFound},
		{"conflict", domain.NewConflictError("stale"), http.StatusConflict},
		{"invalid state", domain.NewInvalidStateError("a", "b"), http.StatusUnprocessableEntity},
		{"forbidden", domain.NewForbiddenError("no"), http.StatusForbidden},
		{"wrapped conflict", fmt.Errorf("update: %w", domain.NewConflictError("stale")), http.StatusConflict},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Error(c, tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
