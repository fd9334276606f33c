package catalog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gigmarket/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/services", h.ListServices)
		public.GET("/services/:id", h.GetService)
	}
	if protected != nil {
		protected.POST("/services", h.CreateService)
		protected.POST("/services/:id/bookings", h.BookService)
		protected.GET("/me/bookings", h.ListMyBookings)
	}
}

// ListServices handles GET /api/v1/services
func (h *Handler) ListServices(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	services, err := h.service.ListServices(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, services)
}

func (h *Handler) GetService(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	svc, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, svc)
}

func (h *Handler) CreateService(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	var req CreateServiceRequest
	if !response.BindJSON(c, &req) {
		return
	}

	svc, err := h.service.CreateService(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, svc)
}

// BookService handles POST /api/v1/services/:id/bookings
func (h *Handler) BookService(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	serviceID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req CreateBookingRequest
	if !response.BindJSON(c, &req) {
		return
	}

	b, err := h.service.BookService(c.Request.Context(), serviceID, userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	bookings, err := h.service.ListMyBookings(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, bookings)
}
