package odds

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}

	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}

	return (100.0 / float64(-american)) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → American +150
// Decimal 1.67 → American -150
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0")
	}

	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}

	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// AmericanToImpliedProbability converts American odds to implied probability
// -110 → 0.5238, +300 → 0.25
func AmericanToImpliedProbability(american int) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}
	return 1.0 / decimal, nil
}

// ProbabilityToAmerican converts a probability to American odds
// 0.50 → +100, 0.25 → +300
func ProbabilityToAmerican(probability float64) (int, error) {
	if probability <= 0 || probability >= 1 {
		return 0, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	return DecimalToAmerican(1.0 / probability)
}

// FormatAmerican renders a price the way sportsbooks display it: +150, -110.
func FormatAmerican(american int) string {
	if american > 0 {
		return "+" + strconv.Itoa(american)
	}
	return strconv.Itoa(american)
}

// ParseAmerican reads "+1200", "-110", "1200" or "EVEN".
func ParseAmerican(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "even") || strings.EqualFold(s, "ev") {
		return 100, nil
	}
	v, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, fmt.Errorf("invalid American odds %q: %w", s, err)
	}
	if v > -100 && v < 100 {
		return 0, fmt.Errorf("invalid American odds %q: magnitude below 100", s)
	}
	return v, nil
}
