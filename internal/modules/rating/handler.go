package rating

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gigmarket/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/providers/:id/rating", h.GetProviderRating)
}

// GetProviderRating returns the provider's average rating, or a null average
// when nobody has reviewed them yet.
func (h *Handler) GetProviderRating(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.ProviderRating(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}
