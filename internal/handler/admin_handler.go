package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/platform/auth"
	"github.com/fastaid/service-dispatch/internal/platform/middleware"
	"github.com/fastaid/service-dispatch/internal/platform/response"
)

// AdminTripHandler handles admin HTTP requests for dispatch management.
type AdminTripHandler struct {
	service *application.TripService
}

// NewAdminTripHandler creates a new AdminTripHandler.
func NewAdminTripHandler(service *application.TripService) *AdminTripHandler {
	return &AdminTripHandler{service: service}
}

// RegisterRoutes registers admin trip routes.
func (h *AdminTripHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/trips", h.ListTrips)
		admin.GET("/stats/trips", h.TripStats)
		admin.POST("/trips/:id/phase", h.OverridePhase)
	}
}

// ListTrips handles GET /api/v1/admin/trips.
func (h *AdminTripHandler) ListTrips(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	trips, total, err := h.service.ListAllTrips(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, trips, total, page, limit)
}

// TripStats handles GET /api/v1/admin/stats/trips.
func (h *AdminTripHandler) TripStats(c *gin.Context) {
	stats, err := h.service.GetTripStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// OverridePhase handles POST /api/v1/admin/trips/:id/phase. This bypasses the
// normal transition rules; the written phase is authoritative.
func (h *AdminTripHandler) OverridePhase(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	var body struct {
		Phase string `json:"phase" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.OverridePhase(c.Request.Context(), tripID, body.Phase)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
