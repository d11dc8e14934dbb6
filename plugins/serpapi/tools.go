package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/tools"
	"github.com/xeipuuv/gojsonschema"
)

// ToolName is the name the model uses to request a flight search.
const ToolName = "search_flights"

// SearchFlightsInput is the argument object of search_flights.
type SearchFlightsInput struct {
	DepartureID   string `json:"departure_id" description:"Departure airport: 3-letter IATA code, city name, or kgmid starting with /m/"`
	ArrivalID     string `json:"arrival_id" description:"Arrival airport: 3-letter IATA code, city name, or kgmid starting with /m/"`
	DepartureDate string `json:"departure_date" description:"Outbound date, YYYY-MM-DD"`
	ReturnDate    string `json:"return_date,omitempty" description:"Return date, YYYY-MM-DD. Only for round trips"`
	TripType      string `json:"trip_type,omitempty" description:"round-trip or one-way. Inferred from return_date when omitted"`
	Country       string `json:"country,omitempty" description:"2-letter country code for localisation"`
	Language      string `json:"language,omitempty" description:"Language code, e.g. en"`
	Currency      string `json:"currency,omitempty" description:"ISO 4217 currency code, e.g. USD"`
}

func (in *SearchFlightsInput) raw() flights.RawQuery {
	return flights.RawQuery{
		DepartureID:   in.DepartureID,
		ArrivalID:     in.ArrivalID,
		DepartureDate: in.DepartureDate,
		ReturnDate:    in.ReturnDate,
		TripType:      in.TripType,
		Country:       in.Country,
		Language:      in.Language,
		Currency:      in.Currency,
	}
}

const argumentSchema = `{
  "type": "object",
  "required": ["departure_id", "arrival_id", "departure_date"],
  "properties": {
    "departure_id":   {"type": "string", "minLength": 1},
    "arrival_id":     {"type": "string", "minLength": 1},
    "departure_date": {"type": "string", "minLength": 1},
    "return_date":    {"type": ["string", "null"]},
    "trip_type":      {"type": ["string", "integer", "null"]},
    "country":        {"type": ["string", "null"]},
    "language":       {"type": ["string", "null"]},
    "currency":       {"type": ["string", "null"]}
  }
}`

var argumentSchemaLoader = gojsonschema.NewStringLoader(argumentSchema)

// SearchTool validates model-supplied arguments and runs the search.
type SearchTool struct {
	Client    *Client
	Validator *flights.Validator
}

// NewSearchTool initializes and registers the search_flights tool
func NewSearchTool(c *Client, validator *flights.Validator, gk *genkit.Genkit, registry *tools.Registry) *SearchTool {
	if validator == nil {
		validator = flights.NewValidator(nil, nil)
	}
	t := &SearchTool{Client: c, Validator: validator}
	if gk == nil || registry == nil {
		return t
	}

	registry.Register(genkit.DefineTool[*SearchFlightsInput, map[string]any](
		gk,
		ToolName,
		t.Description(),
		func(ctx *ai.ToolContext, input *SearchFlightsInput) (map[string]any, error) {
			if input == nil {
				return nil, fmt.Errorf("input required")
			}
			return t.Execute(ctx, input.raw())
		},
	), t.ExecuteArgs)
	return t
}

func (t *SearchTool) Description() string {
	return "Searches Google Flights for real-time flight options. Arguments: departure_id and arrival_id " +
		"(3-letter airport codes or city names), departure_date (YYYY-MM-DD), optional return_date " +
		"(YYYY-MM-DD, round trips only), optional trip_type (round-trip or one-way; search multi-city " +
		"itineraries one leg at a time), country, language and currency. " +
		"Resolve relative dates such as 'next friday' with resolve_date first."
}

// ExecuteArgs is the registry entry point: it checks the argument shape
// against the tool schema before validating the query itself.
func (t *SearchTool) ExecuteArgs(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := checkArguments(args); err != nil {
		return nil, err
	}

	normalized := make(map[string]interface{}, len(args))
	for k, v := range args {
		normalized[k] = v
	}
	// Models sometimes send the provider's numeric trip type.
	if v, ok := normalized["trip_type"].(float64); ok {
		normalized["trip_type"] = strconv.Itoa(int(v))
	}

	in := &SearchFlightsInput{}
	b, _ := json.Marshal(normalized)
	if err := json.Unmarshal(b, in); err != nil {
		return nil, fmt.Errorf("failed to parse arguments: %w", err)
	}
	return t.Execute(ctx, in.raw())
}

// Execute validates raw and, only if it passes, calls the provider.
func (t *SearchTool) Execute(ctx context.Context, raw flights.RawQuery) (map[string]any, error) {
	inputJSON, _ := json.Marshal(raw)
	log.Debugf(ctx, "search_flights executing with input: %s", inputJSON)

	q, err := t.Validator.Validate(raw)
	if err != nil {
		log.Warnf(ctx, "search_flights rejected query: %v", err)
		return nil, err
	}
	if q.TripType == flights.TripMultiCity {
		return nil, &flights.ValidationError{Violations: []flights.Violation{{
			Field:   "trip_type",
			Rule:    flights.RuleTripType,
			Message: "multi-city searches are not supported; search each leg as a one-way trip",
		}}}
	}
	if t.Client == nil {
		return nil, fmt.Errorf("serpapi client not initialized")
	}
	return t.Client.Search(ctx, q)
}

func checkArguments(args map[string]interface{}) error {
	result, err := gojsonschema.Validate(argumentSchemaLoader, gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &flights.ValidationError{}
	for _, e := range result.Errors() {
		verr.Violations = append(verr.Violations, flights.Violation{
			Field:   e.Field(),
			Rule:    "schema",
			Message: e.String(),
		})
	}
	return verr
}
