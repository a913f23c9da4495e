package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/services"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
	"github.com/stitts-dev/golf-picks/pkg/utils"
)

// SnapshotHandler stores and retrieves point-in-time snapshots.
type SnapshotHandler struct {
	snapshots *services.SnapshotService
	logger    *logrus.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(snapshots *services.SnapshotService, logger *logrus.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		logger:    logger,
	}
}

// CreateOddsSnapshot reconciles and stores the tour's current odds board
func (h *SnapshotHandler) CreateOddsSnapshot(c *gin.Context) {
	tour, ok := parseTour(c)
	if !ok {
		return
	}

	snap, board, err := h.snapshots.SaveOdds(c.Request.Context(), tour)
	if err != nil {
		respondError(c, h.logger, err, "store odds snapshot")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"tour":      tour,
		"key":       snap.Key,
		"estimated": board.Estimated,
	}).Info("Odds snapshot created on demand")

	utils.SendCreated(c, gin.H{
		"id":           snap.ID,
		"key":          snap.Key,
		"event":        snap.EventName,
		"generated_at": snap.GeneratedAt,
		"contestants":  len(board.Prices),
		"estimated":    board.Estimated,
	})
}

// GetLatest resolves the newest snapshot of a kind, preferring ?event= when given
func (h *SnapshotHandler) GetLatest(c *gin.Context) {
	kind, err := snapshot.ParseKind(c.Param("kind"))
	if err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	tour, ok := parseTour(c)
	if !ok {
		return
	}

	res, err := h.snapshots.Latest(c.Request.Context(), kind, tour, c.Query("event"))
	if err != nil {
		respondError(c, h.logger, err, "resolve snapshot")
		return
	}

	if res.IsFallback {
		utils.SendSuccessWithMessage(c, res, "No snapshot for the requested event; returning the newest available")
		return
	}
	utils.SendSuccess(c, res)
}
