package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"studiobooking/internal/domain"
	"studiobooking/internal/middleware"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the read-only calendar endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:id/busy-slots", h.GetBusySlots)
	rg.GET("/rooms/:id/availability", h.GetAvailability)
}

// RegisterRoutes mounts the booking endpoints. rg must already run JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	staff := middleware.RequireRole(middleware.RoleStudioOwner, middleware.RoleAdmin)

	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.PATCH("/bookings/:id/cancel", h.CancelBooking)
	rg.PATCH("/bookings/:id/confirm", staff, h.ConfirmBooking)
	rg.PATCH("/bookings/:id/complete", staff, h.CompleteBooking)
	rg.PATCH("/bookings/:id/deposit", staff, h.UpdateDeposit)
	rg.GET("/users/me/bookings", h.GetMyBookings)
	rg.GET("/studios/:id/bookings", staff, h.GetStudioBookings)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.ClientID = c.GetInt64("user_id")

	b, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": toBookingResponse(b)})
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, ok := h.loadVisible(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// CancelBooking is open to the booking's client and to staff.
func (h *Handler) CancelBooking(c *gin.Context) {
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "reason is required")
		return
	}
	if _, ok := h.loadVisible(c); !ok {
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *Handler) UpdateDeposit(c *gin.Context) {
	var req UpdateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DepositAmount == nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "deposit_amount is required")
		return
	}
	if _, ok := h.loadManaged(c); !ok {
		return
	}

	b, err := h.service.AdjustDeposit(c.Request.Context(), c.Param("id"), *req.DepositAmount)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

func (h *Handler) GetMyBookings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.ListForClient(c.Request.Context(), c.GetInt64("user_id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": toBookingResponses(list)})
}

func (h *Handler) GetStudioBookings(c *gin.Context) {
	studioID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	manages, err := h.canManage(c, studioID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !manages {
		writeError(c, ErrForbidden)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.ListForStudio(c.Request.Context(), studioID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": toBookingResponses(list)})
}

func (h *Handler) GetBusySlots(c *gin.Context) {
	roomID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	from, err1 := time.Parse(time.RFC3339, c.Query("from"))
	to, err2 := time.Parse(time.RFC3339, c.Query("to"))
	if err1 != nil || err2 != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "from and to must be RFC3339 timestamps")
		return
	}

	slots, err := h.service.BusySlots(c.Request.Context(), roomID, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"room_id": roomID, "busy_slots": slots})
}

func (h *Handler) GetAvailability(c *gin.Context) {
	roomID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date is required (YYYY-MM-DD)")
		return
	}

	res, err := h.service.Availability(c.Request.Context(), roomID, date)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, id string) (*domain.Booking, error)) {
	if _, ok := h.loadManaged(c); !ok {
		return
	}
	b, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": toBookingResponse(b)})
}

// loadVisible fetches the booking in :id for its client or for whoever
// manages its studio.
func (h *Handler) loadVisible(c *gin.Context) (*domain.Booking, bool) {
	return h.load(c, true)
}

// loadManaged fetches the booking in :id for admins and its studio's owner.
func (h *Handler) loadManaged(c *gin.Context) (*domain.Booking, bool) {
	return h.load(c, false)
}

func (h *Handler) load(c *gin.Context, clientMayAccess bool) (*domain.Booking, bool) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if clientMayAccess && b.ClientID == c.GetInt64("user_id") {
		return b, true
	}
	manages, err := h.canManage(c, b.StudioID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !manages {
		writeError(c, ErrForbidden)
		return nil, false
	}
	return b, true
}

// canManage reports whether the caller runs studioID. Admins run every studio.
func (h *Handler) canManage(c *gin.Context, studioID int64) (bool, error) {
	switch c.GetString("role") {
	case middleware.RoleAdmin:
		return true, nil
	case middleware.RoleStudioOwner:
		owner, err := h.service.StudioOwner(c.Request.Context(), studioID)
		if err != nil {
			return false, err
		}
		return owner != 0 && owner == c.GetInt64("user_id"), nil
	}
	return false, nil
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto the API error envelope.
func writeError(c *gin.Context, err error) {
	var (
		vErr  *ValidationError
		lkErr *LockTimeoutError
	)

	switch {
	case errors.As(err, &vErr):
		details := map[string]string{}
		if vErr.Field != "" {
			details[vErr.Field] = vErr.Message
		}
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", vErr.Error(), details)
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", err.Error())
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	case errors.Is(err, ErrPolicyDenied):
		response.Error(c, http.StatusUnprocessableEntity, "CANCELLATION_NOT_ALLOWED", err.Error())
	case errors.As(err, &lkErr):
		c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(lkErr.Waited.Seconds())))))
		response.Error(c, http.StatusServiceUnavailable, "ROOM_BUSY", "Room is busy, please retry")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.Header("Retry-After", "1")
		response.Error(c, http.StatusServiceUnavailable, "ROOM_BUSY", "Request gave up waiting for the room")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrRoomNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Room not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	default:
		logger.LogError(c.Request.Context(), err, "Booking request failed",
			"method", c.Request.Method, "path", c.FullPath())
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
	_ = c.Error(err)
}
