package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/services"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
	"github.com/stitts-dev/golf-picks/pkg/utils"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, logger *logrus.Logger, err error, action string) {
	log := logger.WithFields(logrus.Fields{
		"path":  c.FullPath(),
		"tour":  c.Param("tour"),
		"error": err.Error(),
	})

	switch {
	case errors.Is(err, services.ErrNoEventData),
		errors.Is(err, providers.ErrNoCurrentEvent):
		utils.SendNotFound(c, "No event data available for this tour")
	case errors.Is(err, snapshot.ErrUnnamedEvent):
		log.Warn("Current event has no usable name")
		utils.SendNotFound(c, "Current event has no name to store snapshots under")
	case errors.Is(err, services.ErrNoSnapshot):
		utils.SendNotFound(c, "No snapshot stored for this tour")
	case errors.Is(err, snapshot.ErrStoreUnavailable):
		log.Error("Snapshot store unavailable")
		utils.SendServiceUnavailable(c, "Snapshot store unavailable")
	case errors.Is(err, services.ErrNoPicks):
		log.Warn("No picks could be produced")
		utils.SendServiceUnavailable(c, "Pick generation unavailable and no stored picks exist")
	default:
		log.Error("Failed to " + action)
		utils.SendInternalError(c, "Failed to "+action)
	}
}

func parseTour(c *gin.Context) (snapshot.Tour, bool) {
	tour, err := snapshot.ParseTour(c.Param("tour"))
	if err != nil {
		utils.SendBadRequest(c, err.Error())
		return "", false
	}
	return tour, true
}
