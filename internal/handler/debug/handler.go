// Package debug exposes introspection over the in-memory recency buffers.
// The endpoints are consumed by an external dashboard, not by webhook
// clients.
package debug

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/airmeet-sync/internal/model"
	"github.com/jwalitptl/airmeet-sync/internal/service/notification"
	"github.com/jwalitptl/airmeet-sync/pkg/buffer"
)

const defaultMappingCount = 20

// StatusReporter is implemented by the outbound API clients.
type StatusReporter interface {
	Configured() bool
}

type Handler struct {
	mappings *buffer.Ring[model.MappedItem]
	notifier *notification.Service
	airmeet  StatusReporter
	devrev   StatusReporter
	started  time.Time
}

func NewHandler(mappings *buffer.Ring[model.MappedItem], notifier *notification.Service, airmeet, devrev StatusReporter) *Handler {
	return &Handler{
		mappings: mappings,
		notifier: notifier,
		airmeet:  airmeet,
		devrev:   devrev,
		started:  time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	debug := r.Group("/debug")
	{
		debug.GET("/status", h.Status)
		debug.GET("/mappings", h.Mappings)
		debug.GET("/notifications/last", h.LastNotifications)
	}
}

func serviceStatus(r StatusReporter) gin.H {
	status := "connected"
	if !r.Configured() {
		status = "unconfigured"
	}
	return gin.H{"status": status}
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).String(),
		"services": gin.H{
			"airmeet": serviceStatus(h.airmeet),
			"devrev":  serviceStatus(h.devrev),
		},
		"notifications": gin.H{
			"enabled":  h.notifier.Enabled(),
			"buffered": h.notifier.Buffered(),
		},
		"mappings": gin.H{
			"buffered": h.mappings.Len(),
			"capacity": h.mappings.Capacity(),
		},
	})
}

// Mappings returns the last N mapped items, most recent first.
func (h *Handler) Mappings(c *gin.Context) {
	count := queryCount(c, defaultMappingCount)
	c.JSON(http.StatusOK, h.mappings.Last(count))
}

// LastNotifications returns the most recent notifications, sent or failed.
func (h *Handler) LastNotifications(c *gin.Context) {
	count := queryCount(c, 5)
	c.JSON(http.StatusOK, h.notifier.LastNotifications(count))
}

func queryCount(c *gin.Context, fallback int) int {
	raw := c.Query("count")
	if raw == "" {
		return fallback
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return fallback
	}
	return count
}
