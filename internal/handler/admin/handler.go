package admin

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

type ReportServicer interface {
	GetTodayBookings(ctx context.Context, clinicID uuid.UUID, actor model.Actor) ([]*model.BookingDetail, error)
	GetClinicStats(ctx context.Context, clinicID uuid.UUID, actor model.Actor) (*model.ClinicStats, error)
}

type Handler struct {
	service ReportServicer
}

func NewHandler(service ReportServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := r.Group("/admin", auth.Authenticate(), middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/bookings/today", h.GetTodayBookings)
		admin.GET("/stats", h.GetClinicStats)
	}
}

func (h *Handler) GetTodayBookings(c *gin.Context) {
	actor, clinicID, ok := h.scope(c)
	if !ok {
		return
	}

	bookings, err := h.service.GetTodayBookings(c.Request.Context(), clinicID, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, bookings)
}

func (h *Handler) GetClinicStats(c *gin.Context) {
	actor, clinicID, ok := h.scope(c)
	if !ok {
		return
	}

	stats, err := h.service.GetClinicStats(c.Request.Context(), clinicID, actor)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}

func (h *Handler) scope(c *gin.Context) (model.Actor, uuid.UUID, bool) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return model.Actor{}, uuid.Nil, false
	}
	clinicID, err := handler.QueryUUID(c, "clinic_id")
	if err != nil {
		_ = c.Error(err)
		return model.Actor{}, uuid.Nil, false
	}
	return actor, clinicID, true
}
