package flights

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Result sections in a provider response, in the order they are combined.
var resultSections = []string{"best_flights", "other_flights"}

// FlightResult is one provider result. Price and TotalDuration (minutes)
// are nil when the provider omitted them or sent something non-numeric.
type FlightResult struct {
	Price         *float64
	TotalDuration *float64
	Raw           map[string]any
}

// Rankable reports whether both ranking dimensions are present.
func (f FlightResult) Rankable() bool {
	return f.Price != nil && f.TotalDuration != nil
}

// HasResultSections reports whether raw carries any flight-result section.
func HasResultSections(raw map[string]any) bool {
	for _, s := range resultSections {
		if _, ok := raw[s]; ok {
			return true
		}
	}
	return false
}

// ParseResults combines best_flights and other_flights from a provider
// response. Entries that are not objects are skipped.
func ParseResults(raw map[string]any) []FlightResult {
	var out []FlightResult
	for _, section := range resultSections {
		list, _ := raw[section].([]any)
		for _, entry := range list {
			obj, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			out = append(out, FlightResult{
				Price:         number(obj["price"]),
				TotalDuration: number(obj["total_duration"]),
				Raw:           obj,
			})
		}
	}
	return out
}

func number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Bounds are the min/max values used to normalize one ranking pass.
type Bounds struct {
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	MinDuration float64 `json:"min_duration"`
	MaxDuration float64 `json:"max_duration"`
}

// ScoredFlight is a ranked result. Position is its index in the input.
type ScoredFlight struct {
	FlightResult
	Position      int
	PriceScore    float64
	DurationScore float64
	Score         float64
}

// Ranking is the output of Rank. Considered counts the rankable inputs.
type Ranking struct {
	Flights    []ScoredFlight
	Bounds     Bounds
	Considered int
}

// Rank scores every flight that has both price and duration and returns
// the k lowest scores. Each dimension is min-max normalized with a +1
// denominator so identical values never divide by zero:
//
//	score = (price-minP)/(maxP-minP+1) + (dur-minD)/(maxD-minD+1)
//
// Ties keep input order. Scores are only comparable within one call.
func Rank(results []FlightResult, k int) Ranking {
	scored := make([]ScoredFlight, 0, len(results))
	for i, r := range results {
		if r.Rankable() {
			scored = append(scored, ScoredFlight{FlightResult: r, Position: i})
		}
	}
	if len(scored) == 0 || k <= 0 {
		return Ranking{Flights: []ScoredFlight{}, Considered: len(scored)}
	}

	b := Bounds{
		MinPrice: math.Inf(1), MaxPrice: math.Inf(-1),
		MinDuration: math.Inf(1), MaxDuration: math.Inf(-1),
	}
	for _, s := range scored {
		b.MinPrice = math.Min(b.MinPrice, *s.Price)
		b.MaxPrice = math.Max(b.MaxPrice, *s.Price)
		b.MinDuration = math.Min(b.MinDuration, *s.TotalDuration)
		b.MaxDuration = math.Max(b.MaxDuration, *s.TotalDuration)
	}

	for i := range scored {
		s := &scored[i]
		s.PriceScore = (*s.Price - b.MinPrice) / (b.MaxPrice - b.MinPrice + 1)
		s.DurationScore = (*s.TotalDuration - b.MinDuration) / (b.MaxDuration - b.MinDuration + 1)
		s.Score = s.PriceScore + s.DurationScore
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	considered := len(scored)
	if len(scored) > k {
		scored = scored[:k]
	}
	return Ranking{Flights: scored, Bounds: b, Considered: considered}
}
