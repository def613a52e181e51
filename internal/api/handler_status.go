package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/syncer"
)

type quotaResponse struct {
	DailyLimit int `json:"daily_limit"`
	Remaining  int `json:"remaining"`
}

type statusResponse struct {
	Sites []syncer.SiteStatus `json:"sites"`
	Quota *quotaResponse      `json:"quota,omitempty"`
}

// GetStatus handles GET /api/status?sites=1,2 with the stored sync state.
func (h *Handler) GetStatus(c *gin.Context) {
	siteIDs, err := config.ParseSiteIDs(c.Query("sites"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sites, err := h.syncer.GetSyncStatus(c.Request.Context(), siteIDs...)
	if err != nil {
		log.Printf("Error reading sync status: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sync status"})
		return
	}

	resp := statusResponse{Sites: sites}
	if h.quota != nil {
		resp.Quota = &quotaResponse{DailyLimit: h.quota.DailyLimit(), Remaining: h.quota.RemainingRequests()}
	}
	c.JSON(http.StatusOK, resp)
}

// GetHealth handles GET /api/healthz by pinging the database.
func (h *Handler) GetHealth(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type syncRequest struct {
	Full  bool    `json:"full"`
	Sites []int64 `json:"sites"`
}

// PostSync handles POST /api/sync. The run outlives the request and its summary is returned.
func (h *Handler) PostSync(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	summary, err := h.syncer.SyncAll(context.WithoutCancel(c.Request.Context()), req.Full, req.Sites)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("Error: manual sync failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if h.cache != nil {
		h.cache.Flush()
	}
	c.JSON(http.StatusOK, summary)
}
