package providers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stitts-dev/golf-picks/internal/odds"
)

// Event is one tournament on a tour schedule.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Course    string    `json:"course"`
	Location  string    `json:"location"`
	StartDate time.Time `json:"start_date"`
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
}

// EndDate assumes the usual four-round week.
func (e Event) EndDate() time.Time {
	return e.StartDate.AddDate(0, 0, 3)
}

// HasLocation reports whether the schedule carried course coordinates.
func (e Event) HasLocation() bool {
	return e.Latitude != 0 || e.Longitude != 0
}

// FieldEntry is one player confirmed in an event's field, named the way the
// source names them.
type FieldEntry struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Country    string `json:"country,omitempty"`
}

type Field struct {
	EventName string       `json:"event_name"`
	Players   []FieldEntry `json:"players"`
}

// SkillRating is a player's strokes-gained profile.
type SkillRating struct {
	PlayerName  string  `json:"player_name"`
	SGTotal     float64 `json:"sg_total"`
	SGOffTheTee float64 `json:"sg_ott"`
	SGApproach  float64 `json:"sg_app"`
	SGAroundGrn float64 `json:"sg_arg"`
	SGPutting   float64 `json:"sg_putt"`
	DrivingDist float64 `json:"driving_dist"`
	DrivingAcc  float64 `json:"driving_acc"`
}

// WinProbability is a model's finishing-position distribution for a player.
type WinProbability struct {
	PlayerName string  `json:"player_name"`
	Win        float64 `json:"win"`
	Top5       float64 `json:"top_5"`
	Top10      float64 `json:"top_10"`
	Top20      float64 `json:"top_20"`
	MakeCut    float64 `json:"make_cut"`
}

type Predictions struct {
	EventName string           `json:"event_name"`
	Players   []WinProbability `json:"players"`
}

// OutrightEntry holds every bookmaker quote one source carried for a player.
type OutrightEntry struct {
	PlayerName string            `json:"player_name"`
	Quotes     []odds.PriceQuote `json:"quotes"`
}

// OutrightBoard is one source's outright-winner market for an event.
type OutrightBoard struct {
	Source    string          `json:"source"`
	EventName string          `json:"event_name"`
	Entries   []OutrightEntry `json:"entries"`
}

// flexibleID accepts both string and numeric ids.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*f = flexibleID(str)
		return nil
	}
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexibleID(fmt.Sprintf("%d", num))
		return nil
	}
	return fmt.Errorf("id must be string or number, got %s", data)
}
