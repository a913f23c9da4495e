package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

const (
	dataGolfBaseURL = "https://feeds.datagolf.com"
	dataGolfSource  = "datagolf"
	dateLayout      = "2006-01-02"
)

// DataGolfClient reads schedules, fields, skill ratings, model predictions
// and multi-book outright odds from DataGolf. DataGolf spells players
// "Surname, Given".
type DataGolfClient struct {
	http    *httpClient
	apiKey  string
	baseURL string
	logger  *logrus.Logger
}

func NewDataGolfClient(apiKey string, opts Options, logger *logrus.Logger) *DataGolfClient {
	logger = orStandardLogger(logger)
	base := opts.BaseURL
	if base == "" {
		base = dataGolfBaseURL
	}
	return &DataGolfClient{
		http:    newHTTPClient(dataGolfSource, opts, logger),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		logger:  logger,
	}
}

func (c *DataGolfClient) Name() string {
	return dataGolfSource
}

// DataGolf uses its own tour codes.
func dataGolfTour(tour snapshot.Tour) string {
	switch tour {
	case snapshot.TourEuro:
		return "euro"
	case snapshot.TourKFT:
		return "kft"
	case snapshot.TourLIV:
		return "alt"
	default:
		return "pga"
	}
}

func (c *DataGolfClient) endpoint(path string, params url.Values) (string, error) {
	if c.apiKey == "" {
		return "", &Failure{Source: dataGolfSource, Kind: FailureHTTP, Err: ErrNotConfigured}
	}
	params.Set("file_format", "json")
	params.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode()), nil
}

type dataGolfScheduleResponse struct {
	Tour     string `json:"tour"`
	Schedule []struct {
		EventID   flexibleID `json:"event_id"`
		EventName string     `json:"event_name"`
		Course    string     `json:"course"`
		Location  string     `json:"location"`
		StartDate string     `json:"start_date"`
		Latitude  float64    `json:"latitude"`
		Longitude float64    `json:"longitude"`
	} `json:"schedule"`
}

// Schedule returns the season schedule ordered by start date. Rows with an
// unparseable start date are dropped.
func (c *DataGolfClient) Schedule(ctx context.Context, tour snapshot.Tour) ([]Event, error) {
	u, err := c.endpoint("get-schedule", url.Values{"tour": {dataGolfTour(tour)}})
	if err != nil {
		return nil, err
	}

	var resp dataGolfScheduleResponse
	if err := c.http.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(resp.Schedule))
	for _, row := range resp.Schedule {
		start, err := time.Parse(dateLayout, row.StartDate)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"event":      row.EventName,
				"start_date": row.StartDate,
			}).Debug("Skipping schedule row with bad start date")
			continue
		}
		events = append(events, Event{
			ID:        string(row.EventID),
			Name:      row.EventName,
			Course:    row.Course,
			Location:  row.Location,
			StartDate: start,
			Latitude:  row.Latitude,
			Longitude: row.Longitude,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].StartDate.Before(events[j].StartDate) })
	return events, nil
}

// CurrentEvent picks the event in play at now, or the next one starting
// within a week.
func (c *DataGolfClient) CurrentEvent(ctx context.Context, tour snapshot.Tour, now time.Time) (*Event, error) {
	events, err := c.Schedule(ctx, tour)
	if err != nil {
		return nil, err
	}
	if ev, ok := CurrentEvent(events, now); ok {
		return &ev, nil
	}
	return nil, ErrNoCurrentEvent
}

// CurrentEvent is the schedule lookup used by DataGolfClient.CurrentEvent.
// events must be ordered by start date.
func CurrentEvent(events []Event, now time.Time) (Event, bool) {
	day := now.UTC().Truncate(24 * time.Hour)
	for _, ev := range events {
		if !ev.EndDate().Before(day) && ev.StartDate.Before(day.AddDate(0, 0, 7)) {
			return ev, true
		}
	}
	return Event{}, false
}

type dataGolfFieldResponse struct {
	EventName string `json:"event_name"`
	Field     []struct {
		DGID       flexibleID `json:"dg_id"`
		PlayerName string     `json:"player_name"`
		Country    string     `json:"country"`
	} `json:"field"`
}

// Field returns the current event's confirmed field.
func (c *DataGolfClient) Field(ctx context.Context, tour snapshot.Tour) (*Field, error) {
	u, err := c.endpoint("field-updates", url.Values{"tour": {dataGolfTour(tour)}})
	if err != nil {
		return nil, err
	}

	var resp dataGolfFieldResponse
	if err := c.http.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	field := &Field{EventName: resp.EventName, Players: make([]FieldEntry, 0, len(resp.Field))}
	for _, p := range resp.Field {
		field.Players = append(field.Players, FieldEntry{
			PlayerID:   string(p.DGID),
			PlayerName: p.PlayerName,
			Country:    p.Country,
		})
	}
	return field, nil
}

type dataGolfSkillResponse struct {
	Players []SkillRating `json:"players"`
}

// SkillRatings returns strokes-gained ratings for every ranked player.
func (c *DataGolfClient) SkillRatings(ctx context.Context) ([]SkillRating, error) {
	u, err := c.endpoint("preds/skill-ratings", url.Values{"display": {"value"}})
	if err != nil {
		return nil, err
	}

	var resp dataGolfSkillResponse
	if err := c.http.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

type dataGolfPreTournamentResponse struct {
	EventName string           `json:"event_name"`
	Baseline  []WinProbability `json:"baseline"`
}

// PreTournament returns the model's finishing probabilities for the
// current event.
func (c *DataGolfClient) PreTournament(ctx context.Context, tour snapshot.Tour) (*Predictions, error) {
	u, err := c.endpoint("preds/pre-tournament", url.Values{
		"tour":        {dataGolfTour(tour)},
		"odds_format": {"percent"},
	})
	if err != nil {
		return nil, err
	}

	var resp dataGolfPreTournamentResponse
	if err := c.http.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.EventName == "" && len(resp.Baseline) == 0 {
		return nil, &Failure{Source: dataGolfSource, Kind: FailureMalformed, Err: fmt.Errorf("pre-tournament response has no event and no players")}
	}
	return &Predictions{EventName: resp.EventName, Players: resp.Baseline}, nil
}

// outright rows carry one column per bookmaker next to these fixed columns.
var outrightMetaColumns = map[string]bool{
	"player_name": true,
	"dg_id":       true,
	"datagolf":    true,
	"am":          true,
	"country":     true,
}

type dataGolfOutrightsResponse struct {
	EventName string                       `json:"event_name"`
	Market    string                       `json:"market"`
	Odds      []map[string]json.RawMessage `json:"odds"`
}

// FetchOutrights returns the win market across every book DataGolf tracks.
// Book columns that are empty, "n/a" or not valid American prices are
// skipped; a player with no usable column is omitted.
func (c *DataGolfClient) FetchOutrights(ctx context.Context, tour snapshot.Tour) (*OutrightBoard, error) {
	u, err := c.endpoint("betting-tools/outrights", url.Values{
		"tour":        {dataGolfTour(tour)},
		"market":      {"win"},
		"odds_format": {"american"},
	})
	if err != nil {
		return nil, err
	}

	var resp dataGolfOutrightsResponse
	if err := c.http.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	board := &OutrightBoard{Source: dataGolfSource, EventName: resp.EventName}
	for _, row := range resp.Odds {
		var name string
		if raw, ok := row["player_name"]; !ok || json.Unmarshal(raw, &name) != nil || name == "" {
			continue
		}

		books := make([]string, 0, len(row))
		for col := range row {
			if !outrightMetaColumns[col] {
				books = append(books, col)
			}
		}
		// map order is random; keep quotes reproducible
		sort.Strings(books)

		entry := OutrightEntry{PlayerName: name}
		for _, book := range books {
			price, ok := parseBookPrice(row[book])
			if !ok {
				continue
			}
			entry.Quotes = append(entry.Quotes, odds.PriceQuote{BookmakerID: book, PriceAmerican: price})
		}
		if len(entry.Quotes) > 0 {
			board.Entries = append(board.Entries, entry)
		}
	}
	return board, nil
}

// Book columns arrive as "+450" strings, occasionally as bare numbers.
func parseBookPrice(raw json.RawMessage) (int, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		p, err := odds.ParseAmerican(s)
		return p, err == nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		p, err := odds.ParseAmerican(fmt.Sprintf("%.0f", n))
		return p, err == nil
	}
	return 0, false
}
