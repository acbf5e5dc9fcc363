package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/auth"
	"github.com/fastaid/service-dispatch/internal/platform/middleware"
	"github.com/fastaid/service-dispatch/internal/platform/response"
)

// TripHandler handles HTTP requests for trip operations.
type TripHandler struct {
	trips     *application.TripService
	locations *application.LocationService
	dispatch  *application.DispatchService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(
	trips *application.TripService,
	locations *application.LocationService,
	dispatch *application.DispatchService,
) *TripHandler {
	return &TripHandler{trips: trips, locations: locations, dispatch: dispatch}
}

// RegisterRoutes registers all trip routes on the given router group.
func (h *TripHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	trips := r.Group("/api/v1/trips")
	{
		// The tracking page is public: patients follow a link with the
		// request number only.
		trips.GET("/track/:number", h.TrackTrip)

		authed := trips.Group("")
		authed.Use(authMW)
		{
			authed.POST("", middleware.RequireRole(auth.RoleDispatcher), h.CreateTrip)
			authed.GET("/:id", h.GetTrip)
			authed.GET("/:id/locations", h.GetLocationHistory)
			authed.POST("/:id/cancel", h.CancelTrip)
			authed.POST("/:id/accept", middleware.RequireRole(auth.RoleDriver), h.AcceptTrip)
			authed.POST("/:id/phase", middleware.RequireRole(auth.RoleDriver), h.AdvancePhase)
			authed.POST("/:id/position", middleware.RequireRole(auth.RoleDriver), h.ReportPosition)
		}
	}
}

// CreateTrip handles POST /api/v1/trips.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req application.CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.trips.CreateTrip(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetTrip handles GET /api/v1/trips/:id.
func (h *TripHandler) GetTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	result, err := h.trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// TrackTrip handles GET /api/v1/trips/track/:number.
func (h *TripHandler) TrackTrip(c *gin.Context) {
	result, err := h.trips.TrackTrip(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetLocationHistory handles GET /api/v1/trips/:id/locations.
func (h *TripHandler) GetLocationHistory(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	result, err := h.trips.GetLocationHistory(c.Request.Context(), tripID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelTrip handles POST /api/v1/trips/:id/cancel.
func (h *TripHandler) CancelTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.trips.CancelTrip(c.Request.Context(), tripID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AcceptTrip handles POST /api/v1/trips/:id/accept.
func (h *TripHandler) AcceptTrip(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	driverID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.dispatch.AcceptTrip(c.Request.Context(), tripID, driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AdvancePhase handles POST /api/v1/trips/:id/phase.
func (h *TripHandler) AdvancePhase(c *gin.Context) {
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

	result, err := h.trips.AdvancePhase(c.Request.Context(), tripID, body.Phase)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReportPosition handles POST /api/v1/trips/:id/position.
func (h *TripHandler) ReportPosition(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid trip ID")
		return
	}

	var body struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pos := geo.Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude}
	result, err := h.locations.OnDriverPosition(c.Request.Context(), tripID, pos)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
