package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	version string
}

func NewHandler(version string) *Handler {
	return &Handler{version: version}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.Health)
	r.GET("/", h.Root)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Root describes the service and its endpoints for anyone poking at it.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Airmeet-DevRev sync API",
		"version": h.version,
		"endpoints": gin.H{
			"webhooks": gin.H{
				"registration": "/webhooks/registration",
				"session":      "/webhooks/session",
				"booth":        "/webhooks/booth",
			},
			"health": "/health",
		},
	})
}
