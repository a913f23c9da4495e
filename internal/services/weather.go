package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/cache"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// ScheduleSource lists a tour's events.
type ScheduleSource interface {
	Schedule(ctx context.Context, tour snapshot.Tour) ([]providers.Event, error)
}

// WeatherSource reports current conditions at a point.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (*providers.Weather, error)
}

// EventWeather is the cached unit: conditions at an event's course.
type EventWeather struct {
	Tournament providers.Event   `json:"event"`
	Weather    providers.Weather `json:"weather"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Impact     float64           `json:"impact"`
	Cached     bool              `json:"cached"`
}

func (w *EventWeather) Timestamp() time.Time {
	if w == nil {
		return time.Time{}
	}
	return w.FetchedAt
}

func (w *EventWeather) Event() string {
	if w == nil {
		return ""
	}
	return w.Tournament.Name
}

// WeatherService provides course weather for events, cached in the snapshot
// store for a fixed budget.
type WeatherService struct {
	schedule  ScheduleSource
	weather   WeatherSource
	cache     *jsonCache
	validator *cache.Validator
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

func NewWeatherService(schedule ScheduleSource, weather WeatherSource, store snapshot.Store, ttl time.Duration, logger *logrus.Logger) *WeatherService {
	if ttl <= 0 {
		ttl = cache.WeatherTTL
	}
	ws := &WeatherService{
		schedule: schedule,
		weather:  weather,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
	ws.validator = cache.NewValidatorWithClock(func() time.Time { return ws.now() })
	if store != nil {
		ws.cache = newJSONCache(store, "weather")
	}
	return ws
}

// SetClock is used by tests.
func (ws *WeatherService) SetClock(now func() time.Time) {
	ws.now = now
}

// ForEvent returns conditions for the named event, or the tour's current
// event when eventName is empty. A store that cannot be reached only costs
// the cache.
func (ws *WeatherService) ForEvent(ctx context.Context, tour snapshot.Tour, eventName string) (*EventWeather, error) {
	log := ws.logger.WithFields(logrus.Fields{"component": "weather", "tour": tour})

	if eventName != "" {
		if hit := ws.cached(ctx, tour, eventName, log); hit != nil {
			return hit, nil
		}
	}

	event, err := ws.locate(ctx, tour, eventName)
	if err != nil {
		return nil, err
	}
	if eventName == "" {
		if hit := ws.cached(ctx, tour, event.Name, log); hit != nil {
			return hit, nil
		}
	}
	if !event.HasLocation() {
		return nil, fmt.Errorf("no coordinates for %q", event.Name)
	}

	conditions, err := ws.weather.Current(ctx, event.Latitude, event.Longitude)
	if err != nil {
		return nil, err
	}

	result := &EventWeather{
		Tournament: event,
		Weather:    *conditions,
		FetchedAt:  ws.now().UTC(),
		Impact:     GolfWeatherImpact(*conditions),
	}
	if ws.cache != nil && snapshot.CheckEventName(event.Name) == nil {
		if err := ws.cache.Set(ctx, snapshot.LatestKey(tour, event.Name), result); err != nil {
			log.WithError(err).Warn("Failed to cache weather")
		}
	}
	return result, nil
}

func (ws *WeatherService) cached(ctx context.Context, tour snapshot.Tour, eventName string, log *logrus.Entry) *EventWeather {
	if ws.cache == nil || snapshot.CheckEventName(eventName) != nil {
		return nil
	}
	var entry EventWeather
	found, err := ws.cache.Get(ctx, snapshot.LatestKey(tour, eventName), &entry)
	if err != nil {
		log.WithError(err).Warn("Weather cache unavailable, fetching uncached")
		return nil
	}
	if !found {
		return nil
	}
	decision := ws.validator.Validate(&entry, eventName, ws.ttl)
	if !decision.Valid {
		log.WithFields(logrus.Fields{"event": eventName, "reason": decision.Reason}).Debug("Cached weather rejected")
		return nil
	}
	entry.Cached = true
	return &entry
}

func (ws *WeatherService) locate(ctx context.Context, tour snapshot.Tour, eventName string) (providers.Event, error) {
	events, err := ws.schedule.Schedule(ctx, tour)
	if err != nil {
		return providers.Event{}, err
	}
	if eventName == "" {
		if ev, ok := providers.CurrentEvent(events, ws.now()); ok {
			return ev, nil
		}
		return providers.Event{}, providers.ErrNoCurrentEvent
	}
	want := snapshot.Slug(eventName)
	for _, ev := range events {
		if snapshot.Slug(ev.Name) == want {
			return ev, nil
		}
	}
	return providers.Event{}, fmt.Errorf("event %q not on %s schedule: %w", eventName, tour, providers.ErrNoCurrentEvent)
}

// GolfWeatherImpact is a scoring-difficulty multiplier; 1.0 is neutral.
func GolfWeatherImpact(w providers.Weather) float64 {
	impact := 1.0

	// Wind is the biggest factor in golf
	switch {
	case w.WindMPH > 25:
		impact *= 1.08
	case w.WindMPH > 20:
		impact *= 1.06
	case w.WindMPH > 15:
		impact *= 1.04
	case w.WindMPH > 10:
		impact *= 1.02
	}

	switch w.Conditions {
	case "Rain", "Thunderstorm":
		impact *= 1.05
	case "Drizzle":
		impact *= 1.02
	}

	if w.TempF < 45 || w.TempF > 95 {
		impact *= 1.03
	}
	return impact
}
