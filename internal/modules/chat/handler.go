package chat

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

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/bookings/:id/messages")
	{
		g.GET("", h.ListMessages)
		g.POST("", h.SendMessage)
	}
}

// ListMessages returns the thread, or the part after ?after=<id>.
func (h *Handler) ListMessages(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	bookingID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.CheckParticipant(c.Request.Context(), bookingID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	if s := c.Query("after"); s != "" {
		after, err := strconv.ParseInt(s, 10, 64)
		if err != nil || after < 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_CURSOR", "after must be a non-negative id")
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		msgs, err := h.service.MessagesAfter(c.Request.Context(), bookingID, after, limit)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"messages": msgs})
		return
	}

	msgs, err := h.service.ListMessages(c.Request.Context(), bookingID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) SendMessage(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	bookingID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !response.BindJSON(c, &req) {
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), bookingID, userID, req.ReceiverID, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, msg)
}
