package booking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

type BookingServicer interface {
	GetAvailableSlots(ctx context.Context, clinicID uuid.UUID, date string) (*model.Availability, error)
	CreateBooking(ctx context.Context, actor model.Actor, req *model.CreateBookingRequest) (*model.Booking, error)
	ListMyBookings(ctx context.Context, customerID uuid.UUID) ([]*model.BookingDetail, error)
	CancelBooking(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, actor model.Actor, status model.BookingStatus) (*model.Booking, error)
}

type Handler struct {
	service BookingServicer
}

func NewHandler(service BookingServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	bookings := r.Group("/bookings")
	{
		bookings.GET("/slots", h.GetAvailableSlots)

		authed := bookings.Group("", auth.Authenticate())
		authed.POST("", h.CreateBooking)
		authed.GET("/my", h.ListMyBookings)
		authed.PATCH("/:id/cancel", h.CancelBooking)
		authed.PATCH("/:id/status", middleware.RequireRole(model.RoleAdmin), h.UpdateBookingStatus)
	}
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	var query model.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	clinicID, err := uuid.Parse(query.ClinicID)
	if err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	availability, err := h.service.GetAvailableSlots(c.Request.Context(), clinicID, query.Date)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, availability)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	booking, err := h.service.CreateBooking(c.Request.Context(), actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, booking)
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	bookings, err := h.service.ListMyBookings(c.Request.Context(), actor.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.service.CancelBooking(c.Request.Context(), id, actor); err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "Booking cancelled")
}

func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	booking, err := h.service.UpdateBookingStatus(c.Request.Context(), id, actor, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, booking)
}
