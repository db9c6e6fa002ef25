package similarity

import (
	"regexp"
	"strconv"
	"strings"
)

// NeutralDealScore is returned when either deal size is missing or cannot be
// placed on the tier scale.
const NeutralDealScore = 0.5

// Amount thresholds (EUR) separating tiers 1|2, 2|3 and 3|4.
const (
	tierSmallMax  = 50_000
	tierMediumMax = 500_000
	tierLargeMax  = 5_000_000
)

var amountRe = regexp.MustCompile(`(?i)€?\s*\b(\d+(?:[.,]\d+)*)\s*(miljoen|miljard|million|billion|mln|mio|mrd|bn|k|m|b)?\b`)

var multipliers = map[string]float64{
	"k":       1e3,
	"m":       1e6,
	"mln":     1e6,
	"mio":     1e6,
	"miljoen": 1e6,
	"million": 1e6,
	"b":       1e9,
	"bn":      1e9,
	"mrd":     1e9,
	"miljard": 1e9,
	"billion": 1e9,
}

// DealSizeScore compares two deal sizes with the default vocabulary.
func DealSizeScore(input, customer string) float64 {
	return Default().DealSizeScore(input, customer)
}

// DealSizeScore maps the tier distance between two deal sizes to a score:
// 0 → 1.0, 1 → 0.7, 2 → 0.4, 3 → 0.2. Missing, "not available" or
// unrecognized sizes score NeutralDealScore.
func (s *Scorer) DealSizeScore(input, customer string) float64 {
	if s.vocab.IsNotAvailable(input) || s.vocab.IsNotAvailable(customer) {
		return NeutralDealScore
	}
	a, b := s.Tier(input), s.Tier(customer)
	if a == 0 || b == 0 {
		return NeutralDealScore
	}

	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2:
		return 0.4
	default:
		return 0.2
	}
}

// Tier places a deal-size description on the 1..4 scale, or returns 0 when
// it cannot. Qualitative labels ("mkb", "enterprise") take precedence over
// the first currency amount in the text.
func (s *Scorer) Tier(text string) int {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return 0
	}
	if t := s.vocab.SizeTier(lower); t > 0 {
		return t
	}

	amount, ok := ParseAmount(lower)
	if !ok {
		return 0
	}
	switch {
	case amount < tierSmallMax:
		return 1
	case amount < tierMediumMax:
		return 2
	case amount < tierLargeMax:
		return 3
	default:
		return 4
	}
}

// ParseAmount extracts the first currency-like amount from text, applying a
// magnitude suffix when present ("€250k", "1,5 miljoen", "€ 2.000.000").
func ParseAmount(text string) (float64, bool) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(normalizeNumber(m[1]), 64)
	if err != nil {
		return 0, false
	}
	if mul, ok := multipliers[strings.ToLower(m[2])]; ok {
		value *= mul
	}
	return value, true
}

// normalizeNumber resolves "." and "," into a Go float literal. With both
// present the later one is the decimal separator. A lone separator is a
// thousands separator when it repeats or is followed by exactly three digits.
func normalizeNumber(raw string) string {
	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(raw, ",", "")
		}
		return strings.Replace(strings.ReplaceAll(raw, ".", ""), ",", ".", 1)
	case lastDot >= 0:
		return resolveSingle(raw, ".")
	case lastComma >= 0:
		return resolveSingle(raw, ",")
	default:
		return raw
	}
}

func resolveSingle(raw, sep string) string {
	if strings.Count(raw, sep) > 1 || len(raw)-strings.LastIndex(raw, sep)-1 == 3 {
		return strings.ReplaceAll(raw, sep, "")
	}
	return strings.Replace(raw, sep, ".", 1)
}
