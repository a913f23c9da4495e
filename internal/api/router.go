package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/api/handlers"
	"github.com/stitts-dev/golf-picks/internal/api/middleware"
	"github.com/stitts-dev/golf-picks/internal/services"
)

// Dependencies are the services the HTTP surface is built on. Breakers and
// Scheduler may be nil.
type Dependencies struct {
	Boards    services.BoardSource
	Snapshots *services.SnapshotService
	Picks     *services.PicksService
	Store     handlers.Pinger
	StoreName string
	Breakers  *services.CircuitBreakerService
	Scheduler *services.SnapshotScheduler
	Logger    *logrus.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(deps.Logger), gin.Recovery())

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.StoreName, deps.Breakers, deps.Scheduler, deps.Logger)
	router.GET("/health", healthHandler.GetHealth)
	router.HEAD("/health", healthHandler.GetHealth)

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	oddsHandler := handlers.NewOddsHandler(deps.Boards, deps.Snapshots, deps.Logger)
	snapshotHandler := handlers.NewSnapshotHandler(deps.Snapshots, deps.Logger)
	picksHandler := handlers.NewPicksHandler(deps.Picks, deps.Logger)

	// Odds endpoints
	group.GET("/odds/:tour", oddsHandler.GetBoard)
	group.GET("/odds/:tour/movement", oddsHandler.GetMovement)

	// Snapshot endpoints
	group.POST("/snapshots/odds/:tour", snapshotHandler.CreateOddsSnapshot)
	group.GET("/snapshots/:kind/:tour/latest", snapshotHandler.GetLatest)

	// Picks endpoints
	group.POST("/picks/:tour", picksHandler.GeneratePicks)
}
