package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/deliverydesk/internal/service/partners"
	"github.com/gin-gonic/gin"
)

type PartnerHandler struct {
	service partners.PartnerUseCase
}

type gpsRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

type gpsResponse struct {
	Success   bool      `json:"success"`
	PartnerID string    `json:"partnerId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	Remaining int       `json:"remaining"`
}

func NewPartnerHandler(service partners.PartnerUseCase) *PartnerHandler {
	return &PartnerHandler{service: service}
}

func (h *PartnerHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("/:id/gps", h.updateLocation)
	router.POST("/:id/release", h.release)
}

// RegisterLocations mounts the live-map position list.
func (h *PartnerHandler) RegisterLocations(router *gin.RouterGroup) {
	router.GET("", h.locations)
}

func (h *PartnerHandler) list(c *gin.Context) {
	list, err := h.service.ListPartners(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PartnerHandler) locations(c *gin.Context) {
	positions, err := h.service.ListLocations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, positions)
}

func (h *PartnerHandler) updateLocation(c *gin.Context) {
	var req gpsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "lat and lng must be numbers")
		return
	}

	res, err := h.service.UpdateLocation(c.Request.Context(), partners.LocationInput{
		PartnerID: c.Param("id"),
		Lat:       *req.Lat,
		Lng:       *req.Lng,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gpsResponse{
		Success:   true,
		PartnerID: res.Location.PartnerID,
		Lat:       res.Location.Lat,
		Lng:       res.Location.Lng,
		Timestamp: res.Location.Timestamp,
		Remaining: res.Remaining,
	})
}

func (h *PartnerHandler) release(c *gin.Context) {
	if err := h.service.ReleasePartner(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
