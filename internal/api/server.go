// Package api exposes the admin HTTP surface of the deposit monitor.
// Failure responses are deliberately generic: chain-provider internals
// never leak to the caller.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/coinharbor/deposit-monitor/internal/services"
)

// Monitor is the part of the deposit monitor the handlers call into.
type Monitor interface {
	Watch(ctx context.Context, depositId string) error
	Unwatch(depositId string)
	CheckOnce(ctx context.Context, depositId string) error
	Status() services.MonitorStatus
}

type Handlers struct {
	monitor Monitor
}

func NewHandlers(monitor Monitor) *Handlers {
	return &Handlers{monitor: monitor}
}

func NewRouter(monitor Monitor) *gin.Engine {
	h := NewHandlers(monitor)

	router := gin.New()
	router.Use(gin.Recovery())

	admin := router.Group("/admin/monitoring")
	admin.POST("/start", h.StartMonitoring)
	admin.POST("/stop", h.StopMonitoring)
	admin.GET("/status", h.MonitoringStatus)
	admin.POST("/check", h.CheckDeposit)
	return router
}

type depositRequest struct {
	DepositId string `json:"deposit_id" binding:"required"`
}

// StartMonitoring handles POST /admin/monitoring/start
func (h *Handlers) StartMonitoring(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	if err := h.monitor.Watch(c.Request.Context(), req.DepositId); err != nil {
		logrus.Warnf("api: start monitoring %s: %s", req.DepositId, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StopMonitoring handles POST /admin/monitoring/stop
func (h *Handlers) StopMonitoring(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	h.monitor.Unwatch(req.DepositId)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MonitoringStatus handles GET /admin/monitoring/status
func (h *Handlers) MonitoringStatus(c *gin.Context) {
	status := h.monitor.Status()
	c.JSON(http.StatusOK, gin.H{
		"is_running":   status.Running,
		"active_count": len(status.ActiveIds),
		"active_ids":   status.ActiveIds,
	})
}

// CheckDeposit handles POST /admin/monitoring/check
func (h *Handlers) CheckDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second*30)
	defer cancel()
	if err := h.monitor.CheckOnce(ctx, req.DepositId); err != nil {
		logrus.Warnf("api: check deposit %s: %s", req.DepositId, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
