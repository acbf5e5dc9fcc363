package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

// envelope is the common JSON body shape for all responses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a 200 response with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: message})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, envelope{Success: false, Error: "unauthorized"})
}

// Paginated writes a 200 response carrying a page of items plus paging metadata.
func Paginated[T any](c *gin.Context, items []T, total int64, page, limit int) {
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    domain.NewPaginatedResult(items, total, page, limit),
	})
}

// Error maps a domain error to the appropriate HTTP status. Unclassified
// errors become 500s without leaking internals.
func Error(c *gin.Context, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		c.JSON(http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
	case domain.KindNotFound:
		c.JSON(http.StatusNotFound, envelope{Success: false, Error: err.Error()})
	case domain.KindConflict:
		c.JSON(http.StatusConflict, envelope{Success: false, Error: err.Error()})
	case domain.KindInvalidState:
		c.JSON(http.StatusUnprocessableEntity, envelope{Success: false, Error: err.Error()})
	case domain.KindForbidden:
		c.JSON(http.StatusForbidden, envelope{Success: false, Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
	}
}
