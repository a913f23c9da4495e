package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/ai"
	"github.com/stitts-dev/golf-picks/internal/cache"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/resolver"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// DefaultPredictionsTTL is how long generated picks are reused.
const DefaultPredictionsTTL = cache.PlayerDataTTL

// maxPromptContestants bounds the prompt to the front of the market.
const maxPromptContestants = 40

var (
	// ErrGeneratorUnavailable means no text generator is configured.
	ErrGeneratorUnavailable = errors.New("pick generator not configured")
	// ErrNoPicks means generation failed and no stored picks exist to fall back to.
	ErrNoPicks = errors.New("no picks available")
)

// RatingsSource supplies player skill ratings.
type RatingsSource interface {
	SkillRatings(ctx context.Context) ([]providers.SkillRating, error)
}

// EventWeatherSource supplies course conditions for an event.
type EventWeatherSource interface {
	ForEvent(ctx context.Context, tour snapshot.Tour, eventName string) (*EventWeather, error)
}

// PicksPayload is what a predictions snapshot holds.
type PicksPayload struct {
	Picks     json.RawMessage `json:"picks"`
	Estimated bool            `json:"estimated"`
	Sources   []string        `json:"sources"`
}

// PicksResult is returned to callers of Generate.
type PicksResult struct {
	Tour        snapshot.Tour   `json:"tour"`
	Event       string          `json:"event"`
	Picks       json.RawMessage `json:"picks"`
	Estimated   bool            `json:"estimated"`
	Sources     []string        `json:"sources"`
	SnapshotKey string          `json:"snapshot_key,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Cached      bool            `json:"cached"`
	IsFallback  bool            `json:"is_fallback"`
}

// PicksService produces tournament picks from the reconciled board, joined
// player ratings and course weather.
type PicksService struct {
	boards    BoardSource
	ratings   RatingsSource
	weather   EventWeatherSource
	generator ai.Generator
	snapshots *SnapshotService
	joiner    *StatsJoiner
	validator *cache.Validator
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

// NewPicksService wires the picks pipeline. ratings, weather and generator
// may be nil.
func NewPicksService(
	boards BoardSource,
	ratings RatingsSource,
	weather EventWeatherSource,
	generator ai.Generator,
	snapshots *SnapshotService,
	ttl time.Duration,
	logger *logrus.Logger,
) *PicksService {
	if ttl <= 0 {
		ttl = DefaultPredictionsTTL
	}
	ps := &PicksService{
		boards:    boards,
		ratings:   ratings,
		weather:   weather,
		generator: generator,
		snapshots: snapshots,
		joiner:    NewStatsJoiner(nil),
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
	ps.validator = cache.NewValidatorWithClock(func() time.Time { return ps.now() })
	return ps
}

// SetClock is used by tests.
func (ps *PicksService) SetClock(now func() time.Time) {
	ps.now = now
}

// Generate returns picks for the event, reusing stored picks while they are
// fresh. When generation fails the newest stored picks are returned marked
// as a fallback.
func (ps *PicksService) Generate(ctx context.Context, tour snapshot.Tour, eventName string) (*PicksResult, error) {
	log := ps.logger.WithFields(logrus.Fields{"component": "picks", "tour": tour})

	var board *Board
	if eventName == "" {
		b, err := ps.boards.Reconcile(ctx, tour)
		if err != nil {
			return nil, err
		}
		board = b
		eventName = b.Event
	}
	log = log.WithField("event", eventName)

	if res := ps.snapshots.Resolver().Resolve(ctx, resolver.Query{Kind: snapshot.KindPredictions, Tour: tour, EventName: eventName}); res != nil && !res.IsFallback {
		decision := ps.validator.Validate(res.Snapshot, eventName, ps.ttl)
		if decision.Valid {
			if result, err := fromSnapshot(res); err == nil {
				result.Cached = true
				log.Debug("Serving cached picks")
				return result, nil
			}
		} else {
			log.WithField("reason", decision.Reason).Debug("Stored picks rejected")
		}
	}

	if board == nil {
		b, err := ps.boards.Reconcile(ctx, tour)
		if err != nil {
			return nil, err
		}
		board = b
	}

	picks, err := ps.generate(ctx, board, log)
	if err != nil {
		log.WithError(err).Warn("Pick generation failed, falling back to stored picks")
		return ps.fallback(ctx, tour, board.Event, err)
	}

	payload := PicksPayload{Picks: picks, Estimated: board.Estimated, Sources: board.Sources}
	result := &PicksResult{
		Tour:        tour,
		Event:       board.Event,
		Picks:       picks,
		Estimated:   board.Estimated,
		Sources:     board.Sources,
		GeneratedAt: ps.now().UTC(),
	}

	snap, err := ps.snapshots.SavePredictions(ctx, tour, board.Event, payload)
	if err != nil {
		log.WithError(err).Warn("Failed to store picks")
		return result, nil
	}
	result.SnapshotKey = snap.Key
	result.GeneratedAt = snap.GeneratedAt

	if matchups := matchupsOf(picks); matchups != nil {
		if _, err := ps.snapshots.SaveMatchups(ctx, tour, board.Event, matchups); err != nil {
			log.WithError(err).Warn("Failed to store matchups")
		}
	}
	return result, nil
}

type picksPromptPayload struct {
	Event     string                             `json:"event"`
	Estimated bool                               `json:"estimated_odds"`
	Odds      []ContestantPrice                  `json:"odds"`
	Ratings   []JoinedRow[providers.SkillRating] `json:"ratings,omitempty"`
	Missing   []string                           `json:"ratings_missing,omitempty"`
	Weather   *EventWeather                      `json:"weather,omitempty"`
}

const picksSystemPrompt = `You are a professional golf betting analyst. Use the consensus odds, strokes-gained ratings and course weather provided. Respond with a single JSON object and nothing else.`

const picksInstruction = `Return JSON with keys: "event" (string), "picks" (array of {"player", "market", "price", "confidence", "reasoning"}), "matchups" (array of {"player_a", "player_b", "pick", "reasoning"}), "summary" (string). Odds marked estimated come from model probabilities, not bookmakers.`

func (ps *PicksService) generate(ctx context.Context, board *Board, log *logrus.Entry) (json.RawMessage, error) {
	if ps.generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	front := board.Prices
	if len(front) > maxPromptContestants {
		front = front[:maxPromptContestants]
	}
	payload := picksPromptPayload{Event: board.Event, Estimated: board.Estimated, Odds: front}

	if ps.ratings != nil {
		ratings, err := ps.ratings.SkillRatings(ctx)
		if err != nil {
			log.WithError(err).Warn("Skill ratings unavailable, generating without them")
		} else {
			names := make([]string, len(front))
			for i, p := range front {
				names[i] = p.Contestant
			}
			joined := ps.joiner.Join(names, ratings)
			payload.Ratings = joined.Rows
			payload.Missing = joined.NotFound
			log.WithFields(logrus.Fields{
				"matched":   joined.MatchedCount,
				"surname":   joined.SurnameCount,
				"not_found": joined.NotFoundCount,
			}).Debug("Joined skill ratings")
		}
	}

	if ps.weather != nil {
		w, err := ps.weather.ForEvent(ctx, board.Tour, board.Event)
		if err != nil {
			log.WithError(err).Warn("Weather unavailable, generating without it")
		} else {
			payload.Weather = w
		}
	}

	text, err := ps.generator.Generate(ctx, ai.Prompt{
		System:      picksSystemPrompt,
		Instruction: picksInstruction,
		Payload:     payload,
		MaxTokens:   4000,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}
	return ai.PicksSchema.Validate(text)
}

func (ps *PicksService) fallback(ctx context.Context, tour snapshot.Tour, eventName string, cause error) (*PicksResult, error) {
	res := ps.snapshots.Resolver().Resolve(ctx, resolver.Query{Kind: snapshot.KindPredictions, Tour: tour, EventName: eventName})
	if res == nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPicks, cause)
	}
	result, err := fromSnapshot(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPicks, cause)
	}
	result.IsFallback = true
	return result, nil
}

func fromSnapshot(res *resolver.Resolution) (*PicksResult, error) {
	var payload PicksPayload
	if err := res.Snapshot.Decode(&payload); err != nil {
		return nil, err
	}
	return &PicksResult{
		Tour:        res.Snapshot.Tour,
		Event:       res.Snapshot.EventName,
		Picks:       payload.Picks,
		Estimated:   payload.Estimated,
		Sources:     payload.Sources,
		SnapshotKey: res.Key,
		GeneratedAt: res.Snapshot.GeneratedAt,
	}, nil
}

// matchupsOf returns the picks' matchups array when it has entries.
func matchupsOf(picks json.RawMessage) json.RawMessage {
	var obj struct {
		Matchups []json.RawMessage `json:"matchups"`
	}
	if err := json.Unmarshal(picks, &obj); err != nil || len(obj.Matchups) == 0 {
		return nil
	}
	out, err := json.Marshal(obj.Matchups)
	if err != nil {
		return nil
	}
	return out
}
