package providers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

const (
	oddsAPIBaseURL = "https://api.the-odds-api.com/v4"
	oddsAPISource  = "the-odds-api"
	golfGroup      = "Golf"
)

// OddsAPIClient reads golf outright markets from The Odds API. The API only
// lists majors, all of which sit on the primary tour.
type OddsAPIClient struct {
	http    *httpClient
	apiKey  string
	baseURL string
	regions string
	logger  *logrus.Logger
}

func NewOddsAPIClient(apiKey string, opts Options, logger *logrus.Logger) *OddsAPIClient {
	logger = orStandardLogger(logger)
	base := opts.BaseURL
	if base == "" {
		base = oddsAPIBaseURL
	}
	return &OddsAPIClient{
		http:    newHTTPClient(oddsAPISource, opts, logger),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		regions: "us,uk",
		logger:  logger,
	}
}

func (c *OddsAPIClient) Name() string {
	return oddsAPISource
}

type oddsAPISport struct {
	Key         string `json:"key"`
	Group       string `json:"group"`
	Title       string `json:"title"`
	Active      bool   `json:"active"`
	HasOutright bool   `json:"has_outrights"`
}

type oddsAPIEvent struct {
	ID         string `json:"id"`
	SportKey   string `json:"sport_key"`
	SportTitle string `json:"sport_title"`
	Bookmakers []struct {
		Key     string `json:"key"`
		Title   string `json:"title"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string  `json:"name"`
				Price float64 `json:"price"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// ActiveGolfSport returns the key of the first golf outright market that is
// currently open.
func (c *OddsAPIClient) ActiveGolfSport(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", &Failure{Source: oddsAPISource, Kind: FailureHTTP, Err: ErrNotConfigured}
	}

	var sports []oddsAPISport
	u := fmt.Sprintf("%s/sports?%s", c.baseURL, url.Values{"apiKey": {c.apiKey}}.Encode())
	if err := c.http.getJSON(ctx, u, &sports); err != nil {
		return "", err
	}
	for _, s := range sports {
		if s.Group == golfGroup && s.Active && s.HasOutright {
			return s.Key, nil
		}
	}
	return "", ErrNoCurrentEvent
}

// FetchOutrights returns every bookmaker's outright-winner prices for the
// open golf market. Bookmakers are kept in response order.
func (c *OddsAPIClient) FetchOutrights(ctx context.Context, tour snapshot.Tour) (*OutrightBoard, error) {
	if tour != snapshot.TourPGA {
		return nil, ErrUnsupportedTour
	}

	sport, err := c.ActiveGolfSport(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"apiKey":     {c.apiKey},
		"regions":    {c.regions},
		"markets":    {"outrights"},
		"oddsFormat": {"american"},
	}
	u := fmt.Sprintf("%s/sports/%s/odds?%s", c.baseURL, url.PathEscape(sport), params.Encode())

	var events []oddsAPIEvent
	if err := c.http.getJSON(ctx, u, &events); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNoCurrentEvent
	}

	ev := events[0]
	board := &OutrightBoard{
		Source:    oddsAPISource,
		EventName: strings.TrimSuffix(strings.TrimSpace(ev.SportTitle), " Winner"),
	}

	index := make(map[string]int)
	for _, bm := range ev.Bookmakers {
		for _, m := range bm.Markets {
			if m.Key != "outrights" {
				continue
			}
			for _, o := range m.Outcomes {
				price := int(math.Round(o.Price))
				if price > -100 && price < 100 {
					continue
				}
				i, ok := index[o.Name]
				if !ok {
					i = len(board.Entries)
					index[o.Name] = i
					board.Entries = append(board.Entries, OutrightEntry{PlayerName: o.Name})
				}
				board.Entries[i].Quotes = append(board.Entries[i].Quotes, odds.PriceQuote{
					BookmakerID:   bm.Key,
					PriceAmerican: price,
				})
			}
		}
	}

	c.logger.WithFields(logrus.Fields{
		"sport":   sport,
		"event":   board.EventName,
		"players": len(board.Entries),
	}).Debug("Fetched outrights from The Odds API")
	return board, nil
}
