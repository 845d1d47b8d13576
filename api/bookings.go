package api

import (
	"net/http"

	"github.com/Domenick1991/deliverydesk/internal/domain"
	"github.com/Domenick1991/deliverydesk/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type assignRequest struct {
	PartnerID string `json:"partnerId" binding:"required"`
}

type reviewRequest struct {
	Status     string `json:"status" binding:"required"`
	ReviewedBy string `json:"reviewedBy"`
}

type linkResponse struct {
	URL string `json:"url"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.POST("/:id/assign", h.assign)
	router.PATCH("/:id/documents/:docType", h.review)
	router.GET("/:id/documents/:docType/link", h.link)
	router.POST("/:id/confirm", h.confirm)
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListBookings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "partnerId is required")
		return
	}

	b, err := h.service.AssignPartner(c.Request.Context(), c.Param("id"), req.PartnerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Valid status is required")
		return
	}

	b, err := h.service.ReviewDocument(c.Request.Context(), booking.ReviewInput{
		BookingID:  c.Param("id"),
		DocType:    c.Param("docType"),
		Status:     domain.DocumentStatus(req.Status),
		ReviewedBy: req.ReviewedBy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) link(c *gin.Context) {
	url, err := h.service.DocumentLink(c.Request.Context(), c.Param("id"), c.Param("docType"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkResponse{URL: url})
}

func (h *BookingHandler) confirm(c *gin.Context) {
	b, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
