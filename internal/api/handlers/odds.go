package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/services"
	"github.com/stitts-dev/golf-picks/pkg/utils"
)

// OddsHandler serves reconciled odds boards and their movement.
type OddsHandler struct {
	boards    services.BoardSource
	snapshots *services.SnapshotService
	logger    *logrus.Logger
}

// NewOddsHandler creates a new odds handler
func NewOddsHandler(boards services.BoardSource, snapshots *services.SnapshotService, logger *logrus.Logger) *OddsHandler {
	return &OddsHandler{
		boards:    boards,
		snapshots: snapshots,
		logger:    logger,
	}
}

// GetBoard returns the consensus board for the tour's current event
func (h *OddsHandler) GetBoard(c *gin.Context) {
	tour, ok := parseTour(c)
	if !ok {
		return
	}

	board, err := h.boards.Reconcile(c.Request.Context(), tour)
	if err != nil {
		respondError(c, h.logger, err, "reconcile odds")
		return
	}

	if board.Estimated {
		utils.SendSuccessWithMessage(c, board, "No bookmaker odds available; prices are estimated from model probabilities")
		return
	}
	utils.SendSuccess(c, board)
}

// GetMovement compares current consensus with the first board stored for the event
func (h *OddsHandler) GetMovement(c *gin.Context) {
	tour, ok := parseTour(c)
	if !ok {
		return
	}

	report, err := h.snapshots.Movement(c.Request.Context(), tour)
	if err != nil {
		respondError(c, h.logger, err, "compute odds movement")
		return
	}

	if report.BaselineCreated {
		utils.SendSuccessWithMessage(c, report, "Baseline stored; movement is available from the next request")
		return
	}
	utils.SendSuccess(c, report)
}
