package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	var caching gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.cache != nil {
		caching = mw.Cache(h.cache, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/healthz", h.GetHealth)
		api.GET("/status", h.GetStatus)
		api.POST("/sync", h.PostSync)

		api.GET("/sites", caching, h.GetSites)
		api.GET("/sites/:site_id/energy", caching, h.GetEnergy)
		api.GET("/sites/:site_id/power", caching, h.GetPower)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
