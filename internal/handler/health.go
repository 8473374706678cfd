package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradescript/internal/db"
)

// HealthHandler serves the liveness and readiness probes. Both routes
// bypass the bearer middleware.
type HealthHandler struct {
	DB  *db.DB
	Env string

	started time.Time
}

func (h *HealthHandler) Register(r *gin.Engine) {
	h.started = time.Now()
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"env":    h.Env,
		"uptime": time.Since(h.started).Truncate(time.Second).String(),
	})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if err := h.DB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"reason": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
