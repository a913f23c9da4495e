// Package odds combines bookmaker quotes for a contestant into one
// consensus price.
package odds

import (
	"math"
)

// PriceQuote is one bookmaker's American price for a contestant.
type PriceQuote struct {
	BookmakerID   string `json:"bookmaker"`
	PriceAmerican int    `json:"price"`
}

// ConsensusPrice is the aggregate of every quote carried for a contestant.
// BestPrice >= AveragePrice >= WorstPrice does not hold in general when
// quotes straddle the +/- boundary and SignedComparator is in use.
type ConsensusPrice struct {
	Contestant     string `json:"contestant"`
	AveragePrice   int    `json:"average_price"`
	BestPrice      int    `json:"best_price"`
	BestBookmaker  string `json:"best_bookmaker"`
	WorstPrice     int    `json:"worst_price"`
	WorstBookmaker string `json:"worst_bookmaker"`
	BookmakerCount int    `json:"bookmaker_count"`
	Display        string `json:"display"`
	BestDisplay    string `json:"best_display"`
}

// Comparator reports whether price a is better for the bettor than b
// (positive), worse (negative) or equal (zero).
type Comparator func(a, b int) int

// SignedComparator compares the raw signed integers: a larger number is
// better. Correct within one sign, inconsistent across it (-110 ranks above
// -150 but also below +100 by a margin unrelated to payout).
func SignedComparator(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// PayoutComparator compares the decimal payout per unit staked. Zero
// prices are invalid and rank below everything.
func PayoutComparator(a, b int) int {
	da, errA := AmericanToDecimal(a)
	db, errB := AmericanToDecimal(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	case da > db:
		return 1
	case da < db:
		return -1
	default:
		return 0
	}
}

// Aggregator builds ConsensusPrice records with a fixed comparator.
type Aggregator struct {
	compare Comparator
}

// NewAggregator returns an aggregator; a nil comparator means SignedComparator.
func NewAggregator(compare Comparator) *Aggregator {
	if compare == nil {
		compare = SignedComparator
	}
	return &Aggregator{compare: compare}
}

var defaultAggregator = NewAggregator(SignedComparator)

// Aggregate uses the signed-integer convention.
func Aggregate(contestant string, quotes []PriceQuote) (ConsensusPrice, bool) {
	return defaultAggregator.Aggregate(contestant, quotes)
}

// Aggregate returns false when no bookmaker carried the contestant. The
// average is the arithmetic mean rounded half away from zero. When several
// bookmakers tie at an extreme the first in input order is reported.
func (a *Aggregator) Aggregate(contestant string, quotes []PriceQuote) (ConsensusPrice, bool) {
	if len(quotes) == 0 {
		return ConsensusPrice{}, false
	}

	best, worst := quotes[0], quotes[0]
	sum := 0
	for i, q := range quotes {
		sum += q.PriceAmerican
		if i == 0 {
			continue
		}
		if a.compare(q.PriceAmerican, best.PriceAmerican) > 0 {
			best = q
		}
		if a.compare(q.PriceAmerican, worst.PriceAmerican) < 0 {
			worst = q
		}
	}

	avg := int(math.Round(float64(sum) / float64(len(quotes))))

	return ConsensusPrice{
		Contestant:     contestant,
		AveragePrice:   avg,
		BestPrice:      best.PriceAmerican,
		BestBookmaker:  best.BookmakerID,
		WorstPrice:     worst.PriceAmerican,
		WorstBookmaker: worst.BookmakerID,
		BookmakerCount: len(quotes),
		Display:        FormatAmerican(avg),
		BestDisplay:    FormatAmerican(best.PriceAmerican),
	}, true
}
