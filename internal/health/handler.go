package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler serves the process health surface: liveness, readiness.
type Handler struct {
	reporter   *Reporter
	instanceID string
}

func NewHandler(reporter *Reporter, instanceID string) *Handler {
	return &Handler{
		reporter:   reporter,
		instanceID: instanceID,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

// Health is liveness: 200 while the process runs.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"instance":  h.instanceID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports the lifecycle phase plus the resolved team count and the
// effective rate; 200 only in the ready phase.
func (h *Handler) Ready(c *gin.Context) {
	readiness := h.reporter.Readiness()

	status := http.StatusOK
	if readiness.Status != string(PhaseReady) {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, readiness)
}
