package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"solar-sync-backend/internal/parse"
)

// GetSites handles GET /api/sites.
func (h *Handler) GetSites(c *gin.Context) {
	sites, err := h.store.ListSites(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sites"})
		return
	}
	c.JSON(http.StatusOK, sites)
}

// GetEnergy handles GET /api/sites/{site_id}/energy?start=&end=. The default range is the last 30 days.
func (h *Handler) GetEnergy(c *gin.Context) {
	siteID, from, to, ok := siteRange(c, 30*24*time.Hour)
	if !ok {
		return
	}
	readings, err := h.store.EnergyReadings(c.Request.Context(), siteID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve energy readings"})
		return
	}
	c.JSON(http.StatusOK, readings)
}

// GetPower handles GET /api/sites/{site_id}/power?start=&end=. The default range is the last day.
func (h *Handler) GetPower(c *gin.Context) {
	siteID, from, to, ok := siteRange(c, 24*time.Hour)
	if !ok {
		return
	}
	readings, err := h.store.PowerReadings(c.Request.Context(), siteID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve power readings"})
		return
	}
	c.JSON(http.StatusOK, readings)
}

// siteRange parses the site id and the optional start/end query parameters.
func siteRange(c *gin.Context, defaultSpan time.Duration) (int64, time.Time, time.Time, bool) {
	siteID, err := strconv.ParseInt(c.Param("site_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid site ID"})
		return 0, time.Time{}, time.Time{}, false
	}

	to := time.Now().UTC()
	if v := c.Query("end"); v != "" {
		if to, err = parse.ISO(v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp"})
			return 0, time.Time{}, time.Time{}, false
		}
	}
	from := to.Add(-defaultSpan)
	if v := c.Query("start"); v != "" {
		if from, err = parse.ISO(v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp"})
			return 0, time.Time{}, time.Time{}, false
		}
	}
	if from.After(to) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "'start' must not be after 'end'"})
		return 0, time.Time{}, time.Time{}, false
	}
	return siteID, from, to, true
}
