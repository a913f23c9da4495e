package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/golf-picks/internal/identity"
	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

func TestReconcile_ThreeSpellingsOneContestant(t *testing.T) {
	sources := []OddsSource{
		&staticSource{name: "src-a", board: oneBookBoard("The Masters", "A", map[string]int{"John Smith": 120})},
		&staticSource{name: "src-b", board: oneBookBoard("The Masters", "B", map[string]int{"J. Smith": 140})},
		&staticSource{name: "src-c", board: oneBookBoard("The Masters", "C", map[string]int{"Smith, John": -105})},
	}
	r := NewOddsReconciler(sources, nil, testLogger())

	board, err := r.Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)

	require.Len(t, board.Prices, 1)
	p := board.Prices[0]
	assert.Equal(t, 3, p.BookmakerCount)
	assert.Equal(t, 52, p.AveragePrice)
	assert.Equal(t, 140, p.BestPrice)
	assert.Equal(t, "B", p.BestBookmaker)
	assert.Equal(t, -105, p.WorstPrice)
	assert.Equal(t, "C", p.WorstBookmaker)
	assert.Equal(t, "John Smith", p.Contestant)
	assert.Equal(t, identity.MatchSurname, p.Match)
	assert.ElementsMatch(t, []string{"John Smith", "J. Smith", "Smith, John"}, p.Aliases)

	assert.Equal(t, "The Masters", board.Event)
	assert.Equal(t, []string{"src-a", "src-b", "src-c"}, board.Sources)
	assert.False(t, board.Estimated)
	assert.Empty(t, board.Failed)
}

func TestReconcile_SameSourceNeverMergedBySurname(t *testing.T) {
	board := &providers.OutrightBoard{
		EventName: "The Open",
		Entries: []providers.OutrightEntry{
			{PlayerName: "Matt Fitzpatrick", Quotes: []odds.PriceQuote{{BookmakerID: "A", PriceAmerican: 2500}}},
			{PlayerName: "Alex Fitzpatrick", Quotes: []odds.PriceQuote{{BookmakerID: "A", PriceAmerican: 25000}}},
		},
	}
	r := NewOddsReconciler([]OddsSource{&staticSource{name: "src", board: board}}, nil, testLogger(),
		WithMatcher(identity.NewMatcher(identity.RawSurname)))

	got, err := r.Reconcile(context.Background(), snapshot.TourEuro)
	require.NoError(t, err)
	require.Len(t, got.Prices, 2)
	assert.Equal(t, "Matt Fitzpatrick", got.Prices[0].Contestant)
	assert.Equal(t, "Alex Fitzpatrick", got.Prices[1].Contestant)
}

func TestReconcile_SharedSurnameAcrossSourcesNotMerged(t *testing.T) {
	sources := []OddsSource{
		&staticSource{name: "src-a", board: oneBookBoard("The Open", "A", map[string]int{
			"Justin Thomas":  2000,
			"Michael Thomas": 50000,
		})},
		&staticSource{name: "src-b", board: oneBookBoard("The Open", "B", map[string]int{"M. Thomas": 40000})},
	}
	r := NewOddsReconciler(sources, nil, testLogger(), WithMatcher(identity.NewMatcher(identity.RawSurname)))

	got, err := r.Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)

	require.Len(t, got.Prices, 3)
	for _, p := range got.Prices {
		assert.Equal(t, 1, p.BookmakerCount, p.Contestant)
		assert.Equal(t, identity.MatchExact, p.Match, p.Contestant)
	}
}

func TestReconcile_FirstSourceWinsSharedBookmaker(t *testing.T) {
	sources := []OddsSource{
		&staticSource{name: "first", board: oneBookBoard("Event", "draftkings", map[string]int{"Jon Rahm": 900})},
		&staticSource{name: "second", board: oneBookBoard("Event", "draftkings", map[string]int{"Rahm, Jon": 1000})},
	}
	board, err := NewOddsReconciler(sources, nil, testLogger()).Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)

	require.Len(t, board.Prices, 1)
	assert.Equal(t, 1, board.Prices[0].BookmakerCount)
	assert.Equal(t, 900, board.Prices[0].AveragePrice)
}

func TestReconcile_FailedSourceContributesNothing(t *testing.T) {
	failing := &MockOddsSource{name: "the-odds-api"}
	failing.On("FetchOutrights", mock.Anything, snapshot.TourPGA).
		Return(nil, &providers.Failure{Source: "the-odds-api", Kind: providers.FailureHTTP, Status: 503, Err: errors.New("Service Unavailable")})

	unsupported := &MockOddsSource{name: "regional"}
	unsupported.On("FetchOutrights", mock.Anything, snapshot.TourPGA).Return(nil, providers.ErrUnsupportedTour)

	working := &staticSource{name: "datagolf", board: oneBookBoard("Genesis Invitational", "fanduel", map[string]int{
		"Scottie Scheffler": 350,
		"Rory McIlroy":      800,
	})}

	r := NewOddsReconciler([]OddsSource{failing, unsupported, working}, nil, testLogger())
	board, err := r.Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)

	assert.Equal(t, []string{"datagolf"}, board.Sources)
	require.Len(t, board.Failed, 1)
	assert.Equal(t, "the-odds-api", board.Failed[0].Source)
	assert.Equal(t, "http_error", board.Failed[0].Kind)
	assert.Equal(t, 503, board.Failed[0].Status)

	require.Len(t, board.Prices, 2)
	assert.Equal(t, "Scottie Scheffler", board.Prices[0].Contestant)

	failing.AssertExpectations(t)
	unsupported.AssertExpectations(t)
}

func TestReconcile_AllSourcesFailedEstimatesFromModel(t *testing.T) {
	timeout := &providers.Failure{Source: "datagolf", Kind: providers.FailureTimeout, Err: context.DeadlineExceeded}
	preds := &MockPredictionSource{}
	preds.On("PreTournament", mock.Anything, snapshot.TourPGA).Return(&providers.Predictions{
		EventName: "The Memorial Tournament",
		Players: []providers.WinProbability{
			{PlayerName: "Xander Schauffele", Win: 0.08},
			{PlayerName: "Scottie Scheffler", Win: 0.2},
			{PlayerName: "Nobody", Win: 0},
		},
	}, nil)

	at := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	r := NewOddsReconciler([]OddsSource{&staticSource{name: "datagolf", err: timeout}}, preds, testLogger(), WithClock(fixedClock(at)))

	board, err := r.Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)

	assert.True(t, board.Estimated)
	assert.Equal(t, "The Memorial Tournament", board.Event)
	assert.Equal(t, []string{"model"}, board.Sources)
	assert.Equal(t, at, board.GeneratedAt)
	require.Len(t, board.Failed, 1)
	assert.Equal(t, "timeout", board.Failed[0].Kind)

	require.Len(t, board.Prices, 2)
	assert.Equal(t, "Scottie Scheffler", board.Prices[0].Contestant)
	assert.Equal(t, 400, board.Prices[0].AveragePrice)
	assert.Equal(t, "model", board.Prices[0].BestBookmaker)
	assert.Equal(t, 1150, board.Prices[1].AveragePrice)
}

func TestReconcile_NoEventData(t *testing.T) {
	down := &staticSource{name: "datagolf", err: &providers.Failure{Source: "datagolf", Kind: providers.FailureMalformed, Err: errors.New("bad json")}}

	t.Run("no prediction source", func(t *testing.T) {
		_, err := NewOddsReconciler([]OddsSource{down}, nil, testLogger()).Reconcile(context.Background(), snapshot.TourPGA)
		assert.ErrorIs(t, err, ErrNoEventData)
	})

	t.Run("prediction source fails", func(t *testing.T) {
		preds := &MockPredictionSource{}
		preds.On("PreTournament", mock.Anything, snapshot.TourPGA).Return(nil, providers.ErrNoCurrentEvent)
		_, err := NewOddsReconciler([]OddsSource{down}, preds, testLogger()).Reconcile(context.Background(), snapshot.TourPGA)
		assert.ErrorIs(t, err, ErrNoEventData)
	})

	t.Run("no sources at all", func(t *testing.T) {
		_, err := NewOddsReconciler(nil, nil, testLogger()).Reconcile(context.Background(), snapshot.TourPGA)
		assert.ErrorIs(t, err, ErrNoEventData)
	})
}

func TestReconcile_PayoutComparator(t *testing.T) {
	board := &providers.OutrightBoard{
		EventName: "Event",
		Entries: []providers.OutrightEntry{{
			PlayerName: "Collin Morikawa",
			Quotes: []odds.PriceQuote{
				{BookmakerID: "a", PriceAmerican: 150},
				{BookmakerID: "b", PriceAmerican: -110},
				{BookmakerID: "c", PriceAmerican: 200},
			},
		}},
	}
	r := NewOddsReconciler([]OddsSource{&staticSource{name: "src", board: board}}, nil, testLogger(),
		WithComparator(odds.PayoutComparator))

	got, err := r.Reconcile(context.Background(), snapshot.TourPGA)
	require.NoError(t, err)
	require.Len(t, got.Prices, 1)
	assert.Equal(t, 80, got.Prices[0].AveragePrice)
	assert.Equal(t, "c", got.Prices[0].BestBookmaker)
	assert.Equal(t, "b", got.Prices[0].WorstBookmaker)
}

func TestReconcile_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	failing := &MockOddsSource{name: "flaky"}
	failing.On("FetchOutrights", mock.Anything, snapshot.TourPGA).
		Return(nil, &providers.Failure{Source: "flaky", Kind: providers.FailureHTTP, Status: 500, Err: errors.New("boom")})

	good := &staticSource{name: "good", board: oneBookBoard("Event", "x", map[string]int{"Max Homa": 3000})}
	breakers := NewCircuitBreakerService(3, time.Minute, []string{"flaky", "good"}, testLogger())
	r := NewOddsReconciler([]OddsSource{failing, good}, nil, testLogger(), WithBreakers(breakers))

	for i := 0; i < 5; i++ {
		board, err := r.Reconcile(context.Background(), snapshot.TourPGA)
		require.NoError(t, err)
		require.Len(t, board.Failed, 1)
	}

	// three failures trip the breaker, later calls never reach the source
	failing.AssertNumberOfCalls(t, "FetchOutrights", 3)
	assert.Equal(t, "open", breakers.States()["flaky"])
	assert.Equal(t, "closed", breakers.States()["good"])
}

func TestBoard_Find(t *testing.T) {
	board := &Board{Prices: []ContestantPrice{priceRow("Ludvig Aberg", 1200), priceRow("Tommy Fleetwood", 2500)}}

	got, ok := board.Find("Aberg, Ludvig")
	require.True(t, ok)
	assert.Equal(t, 1200, got.AveragePrice)

	_, ok = board.Find("Tiger Woods")
	assert.False(t, ok)
}
