package handler

import (
	"net/http"

	"meetly/internal/middleware"
	"meetly/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

type quoteRequest struct {
	ProviderID    uint  `json:"providerId" binding:"required"`
	ServiceID     uint  `json:"serviceId" binding:"required"`
	DurationHours int   `json:"durationHours"`
	PromoCodeID   *uint `json:"promoCodeId"`
}

func (r quoteRequest) input() service.QuoteInput {
	return service.QuoteInput{
		ProviderID:    r.ProviderID,
		ServiceID:     r.ServiceID,
		DurationHours: r.DurationHours,
		PromoCodeID:   r.PromoCodeID,
	}
}

// Quote handles POST /quote-booking.
func (h *BookingHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.bookings.Quote(c.Request.Context(), middleware.GetUserID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// Create handles POST /create-booking.
func (h *BookingHandler) Create(c *gin.Context) {
	var req struct {
		quoteRequest
		Date     string `json:"date" binding:"required"`
		Time     string `json:"time" binding:"required"`
		Location string `json:"location" binding:"required"`
		Message  string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, replayed, err := h.bookings.Create(c.Request.Context(), middleware.GetUserID(c), service.CreateBookingInput{
		QuoteInput:     req.input(),
		Date:           req.Date,
		Time:           req.Time,
		Location:       req.Location,
		Message:        req.Message,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	markReplay(c, replayed)
	c.JSON(http.StatusOK, res)
}

// Transition handles POST /complete-booking. Without an action the next step
// is picked from the booking status and the caller's role.
func (h *BookingHandler) Transition(c *gin.Context) {
	var req struct {
		BookingID uint     `json:"bookingId" binding:"required"`
		Action    string   `json:"action"`
		Lat       *float64 `json:"lat"`
		Lng       *float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, replayed, err := h.bookings.Transition(c.Request.Context(), middleware.GetUserID(c), service.TransitionInput{
		BookingID:      req.BookingID,
		Action:         req.Action,
		Lat:            req.Lat,
		Lng:            req.Lng,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	markReplay(c, replayed)
	c.JSON(http.StatusOK, res)
}

// Rate handles POST /rate-booking.
func (h *BookingHandler) Rate(c *gin.Context) {
	var req struct {
		BookingID uint   `json:"bookingId" binding:"required"`
		Rating    int    `json:"rating" binding:"required"`
		Comment   string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.bookings.Rate(c.Request.Context(), middleware.GetUserID(c), req.BookingID, req.Rating, req.Comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), middleware.GetUserID(c), middleware.GetRole(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
