package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/services"
	"github.com/stitts-dev/golf-picks/pkg/utils"
)

// PicksRequest optionally names the event; the tour's current event is used otherwise.
type PicksRequest struct {
	Event string `json:"event"`
}

// PicksHandler serves generated tournament picks.
type PicksHandler struct {
	picks  *services.PicksService
	logger *logrus.Logger
}

// NewPicksHandler creates a new picks handler
func NewPicksHandler(picks *services.PicksService, logger *logrus.Logger) *PicksHandler {
	return &PicksHandler{
		picks:  picks,
		logger: logger,
	}
}

// GeneratePicks returns fresh or cached picks for the tour
func (h *PicksHandler) GeneratePicks(c *gin.Context) {
	tour, ok := parseTour(c)
	if !ok {
		return
	}

	var req PicksRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	event := strings.TrimSpace(req.Event)
	if event == "" {
		event = strings.TrimSpace(c.Query("event"))
	}

	result, err := h.picks.Generate(c.Request.Context(), tour, event)
	if err != nil {
		respondError(c, h.logger, err, "generate picks")
		return
	}

	if result.IsFallback {
		utils.SendSuccessWithMessage(c, result, "Pick generation failed; returning the most recent stored picks")
		return
	}
	utils.SendSuccess(c, result)
}
