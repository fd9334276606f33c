package gig

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

// RegisterRoutes mounts the gig browsing routes on public and the lifecycle
// routes on protected. Either group may be nil.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	if public != nil {
		public.GET("/gigs", h.ListOpenGigs)
		public.GET("/gigs/:id", h.GetGig)
	}
	if protected != nil {
		protected.POST("/gigs", h.CreateGig)
		protected.POST("/gigs/:id/offers", h.SubmitOffer)
		protected.POST("/gigs/:id/offers/:offerId/accept", h.AcceptGigOffer)
		protected.POST("/gigs/:id/complete", h.CompleteGig)
		protected.POST("/gigs/:id/review", h.SubmitReview)
		protected.POST("/offers/:id/accept", h.AcceptOffer)
		protected.GET("/me/gigs", h.ListMyGigs)
		protected.GET("/me/offers", h.ListMyOffers)
	}
}

func (h *Handler) ListOpenGigs(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, 200)
		}
	}

	gigs, err := h.service.ListOpenGigs(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gigs)
}

func (h *Handler) GetGig(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	details, err := h.service.GetGig(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, details)
}

func (h *Handler) CreateGig(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	var req CreateGigRequest
	if !response.BindJSON(c, &req) {
		return
	}

	g, err := h.service.CreateGig(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, g)
}

func (h *Handler) SubmitOffer(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	gigID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req SubmitOfferRequest
	if !response.BindJSON(c, &req) {
		return
	}

	o, err := h.service.SubmitOffer(c.Request.Context(), gigID, userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, o)
}

func (h *Handler) AcceptOffer(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	offerID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	o, err := h.service.AcceptOffer(c.Request.Context(), userID, offerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, o)
}

func (h *Handler) AcceptGigOffer(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	gigID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	offerID, ok := response.ParamID(c, "offerId")
	if !ok {
		return
	}

	o, err := h.service.AcceptGigOffer(c.Request.Context(), userID, gigID, offerID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, o)
}

func (h *Handler) CompleteGig(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	gigID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	g, err := h.service.CompleteGig(c.Request.Context(), userID, gigID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, g)
}

func (h *Handler) SubmitReview(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	gigID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if !response.BindJSON(c, &req) {
		return
	}

	r, err := h.service.SubmitReview(c.Request.Context(), gigID, userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

func (h *Handler) ListMyGigs(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	gigs, err := h.service.ListOwnerGigs(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gigs)
}

func (h *Handler) ListMyOffers(c *gin.Context) {
	userID, ok := response.UserID(c)
	if !ok {
		return
	}
	offers, err := h.service.ListProviderOffers(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, offers)
}
