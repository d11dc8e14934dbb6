package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
)

// RankedAnswer replaces a model answer that carried raw flight results.
type RankedAnswer struct {
	TopFlights    []map[string]any `json:"top_flights"`
	Note          string           `json:"note"`
	CurrentDate   string           `json:"current_date"`
	RankingBounds *flights.Bounds  `json:"ranking_bounds,omitempty"`
}

// postProcess ranks flight results embedded in answer. Answers without a
// JSON object carrying best_flights/other_flights pass through unchanged.
func postProcess(ctx context.Context, answer, today string, topK int) string {
	raw := findFlightResults(answer)
	if raw == nil {
		return answer
	}

	results := flights.ParseResults(raw)
	ranking := flights.Rank(results, topK)
	log.Infof(ctx, "Ranked %d of %d flight results, returning %d", ranking.Considered, len(results), len(ranking.Flights))

	out := RankedAnswer{
		TopFlights:  make([]map[string]any, 0, len(ranking.Flights)),
		Note:        rankingNote,
		CurrentDate: today,
	}
	if len(ranking.Flights) == 0 {
		out.Note = noRankableNote
	} else {
		bounds := ranking.Bounds
		out.RankingBounds = &bounds
	}
	for _, f := range ranking.Flights {
		entry := make(map[string]any, len(f.Raw)+1)
		for k, v := range f.Raw {
			entry[k] = v
		}
		entry["optimality_score"] = f.Score
		out.TopFlights = append(out.TopFlights, entry)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Warnf(ctx, "Failed to encode ranked flights: %v", err)
		return answer
	}
	return string(b)
}

// findFlightResults returns the first JSON object in text that carries
// flight result sections. Every '{' is tried as a start, so brackets in the
// surrounding prose do not hide the object.
func findFlightResults(text string) map[string]any {
	for i := 0; i < len(text); i++ {
		next := strings.IndexByte(text[i:], '{')
		if next < 0 {
			return nil
		}
		i += next

		var m map[string]any
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&m); err != nil {
			continue
		}
		if flights.HasResultSections(m) {
			return m
		}
	}
	return nil
}
