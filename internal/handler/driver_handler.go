package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/platform/auth"
	"github.com/fastaid/service-dispatch/internal/platform/middleware"
	"github.com/fastaid/service-dispatch/internal/platform/response"
)

// DriverHandler handles HTTP requests for driver operations.
type DriverHandler struct {
	drivers    *application.DriverService
	dispatch   *application.DispatchService
	jwtManager *auth.JWTManager
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(
	drivers *application.DriverService,
	dispatch *application.DispatchService,
	jwtManager *auth.JWTManager,
) *DriverHandler {
	return &DriverHandler{drivers: drivers, dispatch: dispatch, jwtManager: jwtManager}
}

// RegisterRoutes registers all driver routes on the given router group.
func (h *DriverHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	driverRole := middleware.RequireRole(auth.RoleDriver)

	drivers := r.Group("/api/v1/drivers")
	{
		drivers.POST("/login", h.Login)
		drivers.POST("/refresh", h.Refresh)

		authed := drivers.Group("")
		authed.Use(authMW, driverRole)
		{
			authed.POST("/logout", h.Logout)
			authed.GET("/me", h.Me)
			authed.GET("/open-trips", h.OpenTrips)
		}
	}
}

// loginResponse bundles the driver profile with the issued token pair.
type loginResponse struct {
	Driver       *application.DriverDTO `json:"driver"`
	Token        string                 `json:"token"`
	RefreshToken string                 `json:"refresh_token"`
}

// tokenPair is the response body for a token refresh.
type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/v1/drivers/login. The phone number is the identity:
// unknown phones register on first login.
func (h *DriverHandler) Login(c *gin.Context) {
	var req application.DriverLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.drivers.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(result.ID, auth.RoleDriver)
	if err != nil {
		response.Error(c, err)
		return
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(result.ID, auth.RoleDriver)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, loginResponse{Driver: result, Token: token, RefreshToken: refresh})
}

// Refresh handles POST /api/v1/drivers/refresh: exchanges a valid refresh
// token for a new token pair.
func (h *DriverHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	claims, err := h.jwtManager.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tokenPair{Token: token, RefreshToken: refresh})
}

// Logout handles POST /api/v1/drivers/logout.
func (h *DriverHandler) Logout(c *gin.Context) {
	driverID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.drivers.GoOffline(c.Request.Context(), driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Me handles GET /api/v1/drivers/me.
func (h *DriverHandler) Me(c *gin.Context) {
	driverID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.drivers.GetDriver(c.Request.Context(), driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// OpenTrips handles GET /api/v1/drivers/open-trips. Trips come back nearest
// first relative to the driver's last known position.
func (h *DriverHandler) OpenTrips(c *gin.Context) {
	driverID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	result, err := h.dispatch.OpenTripsFor(c.Request.Context(), driverID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
