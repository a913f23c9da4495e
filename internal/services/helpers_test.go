package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/stitts-dev/golf-picks/internal/ai"
	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// MockOddsSource for testing
type MockOddsSource struct {
	mock.Mock
	name string
}

func (m *MockOddsSource) Name() string {
	return m.name
}

func (m *MockOddsSource) FetchOutrights(ctx context.Context, tour snapshot.Tour) (*providers.OutrightBoard, error) {
	args := m.Called(ctx, tour)
	board, _ := args.Get(0).(*providers.OutrightBoard)
	return board, args.Error(1)
}

// MockPredictionSource for testing
type MockPredictionSource struct {
	mock.Mock
}

func (m *MockPredictionSource) PreTournament(ctx context.Context, tour snapshot.Tour) (*providers.Predictions, error) {
	args := m.Called(ctx, tour)
	preds, _ := args.Get(0).(*providers.Predictions)
	return preds, args.Error(1)
}

// MockRatingsSource for testing
type MockRatingsSource struct {
	mock.Mock
}

func (m *MockRatingsSource) SkillRatings(ctx context.Context) ([]providers.SkillRating, error) {
	args := m.Called(ctx)
	ratings, _ := args.Get(0).([]providers.SkillRating)
	return ratings, args.Error(1)
}

// staticSource serves a fixed board, or a fixed error.
type staticSource struct {
	name  string
	board *providers.OutrightBoard
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) FetchOutrights(_ context.Context, _ snapshot.Tour) (*providers.OutrightBoard, error) {
	if s.err != nil {
		return nil, s.err
	}
	// a fresh copy each call; the reconciler labels boards in place
	cp := *s.board
	return &cp, nil
}

func oneBookBoard(event, book string, prices map[string]int) *providers.OutrightBoard {
	board := &providers.OutrightBoard{EventName: event}
	for name, price := range prices {
		board.Entries = append(board.Entries, providers.OutrightEntry{
			PlayerName: name,
			Quotes:     []odds.PriceQuote{{BookmakerID: book, PriceAmerican: price}},
		})
	}
	return board
}

// boardSequence returns the boards in order, repeating the last.
type boardSequence struct {
	mu     sync.Mutex
	boards []*Board
	err    error
	calls  int
}

func (b *boardSequence) Reconcile(_ context.Context, tour snapshot.Tour) (*Board, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	i := b.calls - 1
	if i >= len(b.boards) {
		i = len(b.boards) - 1
	}
	board := *b.boards[i]
	board.Tour = tour
	return &board, nil
}

func priceRow(name string, american int) ContestantPrice {
	cp, _ := odds.Aggregate(name, []odds.PriceQuote{{BookmakerID: "book", PriceAmerican: american}})
	return ContestantPrice{ConsensusPrice: cp, Key: name, Aliases: []string{name}}
}

// scriptedGenerator returns canned completions and records prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []ai.Prompt
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt ai.Prompt) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.text), nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// brokenStore fails every call as unreachable.
type brokenStore struct{}

func (brokenStore) Set(context.Context, string, []byte) error {
	return fmt.Errorf("%w: set", snapshot.ErrStoreUnavailable)
}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("%w: get", snapshot.ErrStoreUnavailable)
}

func (brokenStore) List(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("%w: list", snapshot.ErrStoreUnavailable)
}

func (brokenStore) Delete(context.Context, string) error {
	return fmt.Errorf("%w: delete", snapshot.ErrStoreUnavailable)
}
