package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IndexBody is the fixed payload served at GET /.
const IndexBody = "ipcountry: GET /{ip} returns the ISO country code for an IPv4 or IPv6 address"

// Handler manages health check endpoints
type Handler struct {
	readyFn func() error
}

// NewHandler creates a new health check handler
func NewHandler(readyFn func() error) *Handler {
	return &Handler{readyFn: readyFn}
}

// Index serves a fixed informational payload with no database dependency
// GET /
func (h *Handler) Index(c *gin.Context) {
	c.String(http.StatusOK, IndexBody)
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready is the readiness probe endpoint
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	if h.readyFn != nil {
		if err := h.readyFn(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
