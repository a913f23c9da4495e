package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/services"
)

// Pinger is a backing store that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]string      `json:"checks"`
	Breakers  map[string]string      `json:"breakers,omitempty"`
	Scheduler map[string]interface{} `json:"scheduler,omitempty"`
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store     Pinger
	storeName string
	breakers  *services.CircuitBreakerService
	scheduler *services.SnapshotScheduler
	logger    *logrus.Logger
}

// NewHealthHandler creates a new health handler. store, breakers and
// scheduler may be nil.
func NewHealthHandler(
	store Pinger,
	storeName string,
	breakers *services.CircuitBreakerService,
	scheduler *services.SnapshotScheduler,
	logger *logrus.Logger,
) *HealthHandler {
	return &HealthHandler{
		store:     store,
		storeName: storeName,
		breakers:  breakers,
		scheduler: scheduler,
		logger:    logger,
	}
}

// GetHealth returns the basic health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   "golf-picks",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks[h.storeName] = "failed: " + err.Error()
			h.logger.WithError(err).Warn("Health check: snapshot store unreachable")
		} else {
			response.Checks[h.storeName] = "ok"
		}
	} else {
		response.Checks[h.storeName] = "ok"
	}

	// an open breaker degrades a source, not the service
	if h.breakers != nil {
		response.Breakers = h.breakers.States()
	}
	if h.scheduler != nil {
		response.Scheduler = h.scheduler.Status()
	}

	statusCode := http.StatusOK
	if response.Status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
