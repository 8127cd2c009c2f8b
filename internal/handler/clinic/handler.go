package clinic

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

type ClinicServicer interface {
	CreateClinic(ctx context.Context, actor model.Actor, req *model.CreateClinicRequest) (*model.Clinic, error)
	GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	UpdateClinic(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.UpdateClinicRequest) (*model.Clinic, error)
	ListServices(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error)
	CreateService(ctx context.Context, actor model.Actor, req *model.CreateServiceRequest) (*model.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.UpdateServiceRequest) (*model.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID, actor model.Actor) error
}

type Handler struct {
	service ClinicServicer
}

func NewHandler(service ClinicServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	adminOnly := []gin.HandlerFunc{auth.Authenticate(), middleware.RequireRole(model.RoleAdmin)}

	clinics := r.Group("/clinics")
	{
		clinics.GET("/:id", h.GetClinic)
		clinics.GET("/:id/services", h.ListServices)
		clinics.POST("", append(adminOnly, h.CreateClinic)...)
		clinics.PUT("/:id", append(adminOnly, h.UpdateClinic)...)
	}

	services := r.Group("/services", adminOnly...)
	{
		services.POST("", h.CreateService)
		services.PUT("/:id", h.UpdateService)
		services.DELETE("/:id", h.DeleteService)
	}
}

func (h *Handler) CreateClinic(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	clinic, err := h.service.CreateClinic(c.Request.Context(), actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, clinic)
}

func (h *Handler) GetClinic(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	clinic, err := h.service.GetClinic(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, clinic.Public())
}

func (h *Handler) UpdateClinic(c *gin.Context) {
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

	var req model.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	clinic, err := h.service.UpdateClinic(c.Request.Context(), id, actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, clinic)
}

func (h *Handler) ListServices(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	services, err := h.service.ListServices(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, services)
}

func (h *Handler) CreateService(c *gin.Context) {
	actor, err := handler.Actor(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req model.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	service, err := h.service.CreateService(c.Request.Context(), actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, service)
}

func (h *Handler) UpdateService(c *gin.Context) {
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

	var req model.UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(httputil.BindError(err))
		return
	}

	service, err := h.service.UpdateService(c.Request.Context(), id, actor, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, service)
}

func (h *Handler) DeleteService(c *gin.Context) {
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

	if err := h.service.DeleteService(c.Request.Context(), id, actor); err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "service deleted")
}
