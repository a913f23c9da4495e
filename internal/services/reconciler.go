package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/golf-picks/internal/identity"
	"github.com/stitts-dev/golf-picks/internal/odds"
	"github.com/stitts-dev/golf-picks/internal/providers"
	"github.com/stitts-dev/golf-picks/internal/snapshot"
)

// ErrNoEventData means no source produced odds and there was nothing to
// estimate a board from, usually because no event is scheduled.
var ErrNoEventData = errors.New("no event data available")

// modelBookmaker labels prices derived from model probabilities.
const modelBookmaker = "model"

// OddsSource is any feed that can produce an outright-winner board.
type OddsSource interface {
	Name() string
	FetchOutrights(ctx context.Context, tour snapshot.Tour) (*providers.OutrightBoard, error)
}

// PredictionSource supplies model win probabilities.
type PredictionSource interface {
	PreTournament(ctx context.Context, tour snapshot.Tour) (*providers.Predictions, error)
}

// ContestantPrice is the consensus for one reconciled contestant.
type ContestantPrice struct {
	odds.ConsensusPrice
	Key     string             `json:"key"`
	Aliases []string           `json:"aliases"`
	Match   identity.MatchKind `json:"match"`
}

// SourceFailure records a source that contributed nothing.
type SourceFailure struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error"`
}

// Board is the reconciled odds view of one event.
type Board struct {
	Tour        snapshot.Tour     `json:"tour"`
	Event       string            `json:"event"`
	GeneratedAt time.Time         `json:"generated_at"`
	Prices      []ContestantPrice `json:"prices"`
	Sources     []string          `json:"sources"`
	Failed      []SourceFailure   `json:"failed,omitempty"`
	Estimated   bool              `json:"estimated"`
}

// Find returns the price row whose contestant matches name.
func (b *Board) Find(name string) (ContestantPrice, bool) {
	idx := identity.NewIndex[int](nil)
	for i, p := range b.Prices {
		idx.Add(p.Contestant, i)
	}
	i, _, kind := idx.Lookup(name)
	if kind == identity.MatchNone {
		return ContestantPrice{}, false
	}
	return b.Prices[i], true
}

// OddsReconciler fans out to every odds source, matches contestants across
// their spellings and aggregates one consensus price per contestant.
type OddsReconciler struct {
	sources     []OddsSource
	predictions PredictionSource
	breakers    *CircuitBreakerService
	matcher     *identity.Matcher
	aggregator  *odds.Aggregator
	now         func() time.Time
	logger      *logrus.Logger
}

// ReconcilerOption customizes an OddsReconciler.
type ReconcilerOption func(*OddsReconciler)

// WithMatcher swaps the surname strategy used for the fallback stage.
func WithMatcher(m *identity.Matcher) ReconcilerOption {
	return func(r *OddsReconciler) { r.matcher = m }
}

// WithComparator swaps how best and worst prices are chosen.
func WithComparator(c odds.Comparator) ReconcilerOption {
	return func(r *OddsReconciler) { r.aggregator = odds.NewAggregator(c) }
}

// WithClock is used by tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *OddsReconciler) { r.now = now }
}

// WithBreakers routes every source call through its circuit breaker.
func WithBreakers(cb *CircuitBreakerService) ReconcilerOption {
	return func(r *OddsReconciler) { r.breakers = cb }
}

// NewOddsReconciler reconciles sources in the given order; earlier sources
// win when two report the same bookmaker. predictions may be nil.
func NewOddsReconciler(sources []OddsSource, predictions PredictionSource, logger *logrus.Logger, opts ...ReconcilerOption) *OddsReconciler {
	r := &OddsReconciler{
		sources:     sources,
		predictions: predictions,
		matcher:     identity.NewMatcher(nil),
		aggregator:  odds.NewAggregator(odds.SignedComparator),
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type fetchResult struct {
	pos   int
	board *providers.OutrightBoard
	err   error
}

// Reconcile builds the board for the tour's current event. A source that
// fails contributes nothing; if every source fails the board is estimated
// from model probabilities and flagged, or ErrNoEventData is returned.
func (r *OddsReconciler) Reconcile(ctx context.Context, tour snapshot.Tour) (*Board, error) {
	log := r.logger.WithFields(logrus.Fields{"component": "reconciler", "tour": tour})

	results := r.fetchFromAllSources(ctx, tour)

	board := &Board{Tour: tour, GeneratedAt: r.now().UTC()}
	var boards []*providers.OutrightBoard
	for i, res := range results {
		name := r.sources[i].Name()
		switch {
		case res.err == nil && res.board != nil:
			if res.board.Source == "" {
				res.board.Source = name
			}
			boards = append(boards, res.board)
			board.Sources = append(board.Sources, name)
		case errors.Is(res.err, providers.ErrUnsupportedTour):
			log.WithField("source", name).Debug("Source does not cover tour")
		default:
			board.Failed = append(board.Failed, describeFailure(name, res.err))
		}
	}

	board.Event = pickEventName(boards, log)
	board.Prices = r.merge(boards)

	if len(board.Prices) == 0 {
		return r.estimate(ctx, tour, board, log)
	}

	log.WithFields(logrus.Fields{
		"event":       board.Event,
		"contestants": len(board.Prices),
		"sources":     len(board.Sources),
		"failed":      len(board.Failed),
	}).Info("Reconciled odds board")
	return board, nil
}

func (r *OddsReconciler) fetchFromAllSources(ctx context.Context, tour snapshot.Tour) []fetchResult {
	var wg sync.WaitGroup
	ch := make(chan fetchResult, len(r.sources))

	for i, src := range r.sources {
		wg.Add(1)
		go func(pos int, src OddsSource) {
			defer wg.Done()
			board, err := r.fetch(ctx, src, tour)
			ch <- fetchResult{pos: pos, board: board, err: err}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// results are placed by source position so merging is deterministic
	results := make([]fetchResult, len(r.sources))
	for res := range ch {
		results[res.pos] = res
	}
	return results
}

func (r *OddsReconciler) fetch(ctx context.Context, src OddsSource, tour snapshot.Tour) (*providers.OutrightBoard, error) {
	if r.breakers == nil {
		return src.FetchOutrights(ctx, tour)
	}
	out, err := r.breakers.Execute(src.Name(), func() (interface{}, error) {
		return src.FetchOutrights(ctx, tour)
	})
	if err != nil {
		return nil, err
	}
	board, _ := out.(*providers.OutrightBoard)
	return board, nil
}

type contestantGroup struct {
	id      identity.Identity
	aliases []string
	sources map[string]bool
	quotes  []odds.PriceQuote
	books   map[string]bool
	match   identity.MatchKind
}

func (g *contestantGroup) add(source, raw string, quotes []odds.PriceQuote) {
	if !containsString(g.aliases, raw) {
		g.aliases = append(g.aliases, raw)
	}
	g.sources[source] = true
	for _, q := range quotes {
		// first source to report a bookmaker wins
		if g.books[q.BookmakerID] {
			continue
		}
		g.books[q.BookmakerID] = true
		g.quotes = append(g.quotes, q)
	}
}

func (g *contestantGroup) absorb(other *contestantGroup) {
	for _, a := range other.aliases {
		if !containsString(g.aliases, a) {
			g.aliases = append(g.aliases, a)
		}
	}
	for s := range other.sources {
		g.sources[s] = true
	}
	for _, q := range other.quotes {
		if g.books[q.BookmakerID] {
			continue
		}
		g.books[q.BookmakerID] = true
		g.quotes = append(g.quotes, q)
	}
	g.match = identity.MatchSurname
}

// merge groups entries by exact normalized key across every board first,
// then folds remaining groups together by surname. A surname merge is
// refused when both groups already hold an entry from the same source,
// since one source never lists a player twice, and when more than two
// groups share the surname.
func (r *OddsReconciler) merge(boards []*providers.OutrightBoard) []ContestantPrice {
	var groups []*contestantGroup
	byKey := make(map[string]*contestantGroup)

	for _, b := range boards {
		for _, e := range b.Entries {
			id := identity.New(e.PlayerName)
			if id.Key == "" {
				continue
			}
			g, ok := byKey[id.Key]
			if !ok {
				g = &contestantGroup{
					id:      id,
					sources: make(map[string]bool),
					books:   make(map[string]bool),
					match:   identity.MatchExact,
				}
				byKey[id.Key] = g
				groups = append(groups, g)
			}
			g.add(b.Source, e.PlayerName, e.Quotes)
		}
	}

	surnames := make(map[string]int)
	for _, g := range groups {
		surnames[r.matcher.Surname(g.id)]++
	}

	idx := identity.NewIndex[*contestantGroup](r.matcher)
	var merged []*contestantGroup
	for _, g := range groups {
		if surnames[r.matcher.Surname(g.id)] > 2 {
			idx.Add(g.id.Raw, g)
			merged = append(merged, g)
			continue
		}
		if target, _, kind := idx.LookupIdentity(g.id); kind == identity.MatchSurname && disjoint(target.sources, g.sources) {
			target.absorb(g)
			continue
		}
		idx.Add(g.id.Raw, g)
		merged = append(merged, g)
	}

	prices := make([]ContestantPrice, 0, len(merged))
	for _, g := range merged {
		cp, ok := r.aggregator.Aggregate(displayName(g.aliases), g.quotes)
		if !ok {
			continue
		}
		prices = append(prices, ContestantPrice{
			ConsensusPrice: cp,
			Key:            g.id.Key,
			Aliases:        g.aliases,
			Match:          g.match,
		})
	}
	sortByFavourite(prices)
	return prices
}

// estimate prices the field from model win probabilities when no bookmaker
// data is available.
func (r *OddsReconciler) estimate(ctx context.Context, tour snapshot.Tour, board *Board, log *logrus.Entry) (*Board, error) {
	if r.predictions == nil {
		return nil, ErrNoEventData
	}

	preds, err := r.predictions.PreTournament(ctx, tour)
	if err != nil {
		log.WithError(err).Warn("All odds sources failed and model predictions unavailable")
		return nil, ErrNoEventData
	}
	if len(preds.Players) == 0 {
		return nil, ErrNoEventData
	}

	for _, p := range preds.Players {
		price, err := odds.ProbabilityToAmerican(p.Win)
		if err != nil {
			continue
		}
		cp, _ := r.aggregator.Aggregate(p.PlayerName, []odds.PriceQuote{{BookmakerID: modelBookmaker, PriceAmerican: price}})
		board.Prices = append(board.Prices, ContestantPrice{
			ConsensusPrice: cp,
			Key:            identity.Normalize(p.PlayerName),
			Aliases:        []string{p.PlayerName},
			Match:          identity.MatchExact,
		})
	}
	if len(board.Prices) == 0 {
		return nil, ErrNoEventData
	}

	sortByFavourite(board.Prices)
	if board.Event == "" {
		board.Event = preds.EventName
	}
	board.Estimated = true
	board.Sources = append(board.Sources, modelBookmaker)

	log.WithFields(logrus.Fields{
		"event":       board.Event,
		"contestants": len(board.Prices),
	}).Warn("No bookmaker odds available, serving estimated board")
	return board, nil
}

func describeFailure(source string, err error) SourceFailure {
	sf := SourceFailure{Source: source, Kind: "unavailable"}
	if err == nil {
		sf.Error = "no data"
		return sf
	}
	sf.Error = err.Error()
	if f, ok := providers.AsFailure(err); ok {
		sf.Kind = f.Kind.String()
		sf.Status = f.Status
	}
	return sf
}

// pickEventName takes the first source's event name; disagreement is logged
// since sources occasionally lag a week behind.
func pickEventName(boards []*providers.OutrightBoard, log *logrus.Entry) string {
	var name string
	for _, b := range boards {
		if b.EventName == "" {
			continue
		}
		if name == "" {
			name = b.EventName
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(b.EventName)) {
			log.WithFields(logrus.Fields{
				"chosen": name,
				"other":  b.EventName,
				"source": b.Source,
			}).Warn("Sources disagree on event name")
		}
	}
	return name
}

// displayName prefers a "Given Surname" spelling over "Surname, Given".
func displayName(aliases []string) string {
	for _, a := range aliases {
		if !strings.Contains(a, ",") {
			return a
		}
	}
	return aliases[0]
}

// sortByFavourite orders by consensus payout, shortest price first. An
// average of exactly 0 has no payout and goes last.
func sortByFavourite(prices []ContestantPrice) {
	payout := func(american int) float64 {
		d, err := odds.AmericanToDecimal(american)
		if err != nil {
			return math.Inf(1)
		}
		return d
	}
	sort.SliceStable(prices, func(i, j int) bool {
		pi, pj := payout(prices[i].AveragePrice), payout(prices[j].AveragePrice)
		if pi != pj {
			return pi < pj
		}
		return prices[i].Key < prices[j].Key
	})
}

func disjoint(a, b map[string]bool) bool {
	for k := range b {
		if a[k] {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
