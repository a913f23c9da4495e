package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/ai"
	"github.com/stitts-dev/golf-picks/internal/api"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/services"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
	"github.com/stitts-dev/golf-picks/pkg/config"
	"github.com/stitts-dev/golf-picks/pkg/logger"
)

const serviceName = "golf-picks"

// pingStore is a snapshot store the health endpoint can probe.
type pingStore interface {
	snapshot.Store
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService(serviceName)
	log.WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
		"store":       cfg.StoreBackend,
	}).Info("Starting golf picks service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store, closer, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	opts := providers.Options{Timeout: cfg.ExternalAPITimeout, RateLimit: cfg.ProviderRateLimit}

	var (
		dataGolf    *providers.DataGolfClient
		sources     []services.OddsSource
		sourceNames []string
	)
	if cfg.DataGolfAPIKey != "" {
		dataGolf = providers.NewDataGolfClient(cfg.DataGolfAPIKey, opts, structuredLogger)
		sources = append(sources, dataGolf)
	} else {
		log.Warn("DATAGOLF_API_KEY not set; schedule, predictions and ratings are disabled")
	}
	if cfg.OddsAPIKey != "" {
		sources = append(sources, providers.NewOddsAPIClient(cfg.OddsAPIKey, opts, structuredLogger))
	}
	if len(sources) == 0 {
		log.Warn("No odds sources configured; every board request will report no event data")
	}
	for _, s := range sources {
		sourceNames = append(sourceNames, s.Name())
	}

	breakers := services.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, cfg.ExternalAPITimeout, sourceNames, structuredLogger)
	log.WithField("sources", breakers.Sources()).Info("Odds sources configured")

	// optional collaborators stay nil interfaces when unconfigured
	var (
		predictions services.PredictionSource
		ratings     services.RatingsSource
		weather     services.EventWeatherSource
		generator   ai.Generator
	)
	if dataGolf != nil {
		predictions = dataGolf
		ratings = dataGolf
		if cfg.OpenWeatherAPIKey != "" {
			owm := providers.NewOpenWeatherClient(cfg.OpenWeatherAPIKey, opts, structuredLogger)
			weather = services.NewWeatherService(dataGolf, owm, store, cfg.WeatherTTL, structuredLogger)
		}
	}
	if cfg.AnthropicAPIKey != "" {
		generator = ai.NewClaudeClient(ai.ClaudeConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		}, structuredLogger)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set; picks are served from stored snapshots only")
	}

	reconciler := services.NewOddsReconciler(sources, predictions, structuredLogger, services.WithBreakers(breakers))
	snapshotService := services.NewSnapshotService(store, reconciler, cfg.OddsRetention, structuredLogger)
	picksService := services.NewPicksService(reconciler, ratings, weather, generator, snapshotService, cfg.PredictionsTTL, structuredLogger)

	var scheduler *services.SnapshotScheduler
	if cfg.EnableSnapshotScheduler {
		var tours []snapshot.Tour
		for _, name := range cfg.SnapshotTours {
			tour, err := snapshot.ParseTour(name)
			if err != nil {
				log.Fatalf("Invalid SNAPSHOT_TOURS entry: %v", err)
			}
			tours = append(tours, tour)
			logger.WithTournamentContext(string(tour), "").Info("Odds snapshots scheduled")
		}
		scheduler = services.NewSnapshotScheduler(snapshotService, tours, 0, structuredLogger)
		if err := scheduler.Start(cfg.OddsSnapshotSchedule); err != nil {
			log.Fatalf("Failed to start snapshot scheduler: %v", err)
		}
		defer scheduler.Stop()
	}

	router := api.NewRouter(api.Dependencies{
		Boards:    reconciler,
		Snapshots: snapshotService,
		Picks:     picksService,
		Store:     store,
		StoreName: cfg.StoreBackend,
		Breakers:  breakers,
		Scheduler: scheduler,
		Logger:    structuredLogger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Golf picks service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down golf picks service...")

	// in-flight requests get 5 seconds
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Golf picks service forced to shutdown: %v", err)
	}

	log.Info("Golf picks service exited")
}

// openStore builds the snapshot store named by STORE_BACKEND. The returned
// closer is nil for the in-memory store.
func openStore(cfg *config.Config) (pingStore, io.Closer, error) {
	switch cfg.StoreBackend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := snapshot.NewRedisStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case "postgres", "sqlite":
		db, err := snapshot.OpenSQL(cfg.StoreBackend, cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			return nil, nil, err
		}
		store, err := snapshot.NewSQLStore(db)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return snapshot.NewMemoryStore(), nil, nil
	}
}
