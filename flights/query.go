// Package flights validates flight-search requests and ranks the results
// returned by the search provider.
package flights

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// DateLayout is the ISO-8601 date-only form used on the wire.
const DateLayout = "2006-01-02"

// TripType follows the provider's numbering.
type TripType int

const (
	TripUnspecified TripType = 0
	TripRoundTrip   TripType = 1
	TripOneWay      TripType = 2
	TripMultiCity   TripType = 3
)

func (t TripType) String() string {
	switch t {
	case TripRoundTrip:
		return "round-trip"
	case TripOneWay:
		return "one-way"
	case TripMultiCity:
		return "multi-city"
	default:
		return "unspecified"
	}
}

// ParseTripType accepts names ("round-trip", "one_way", "multicity") and the
// provider numbers "1", "2", "3". Empty input yields TripUnspecified.
func ParseTripType(s string) (TripType, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "":
		return TripUnspecified, nil
	case "roundtrip", "return", "1":
		return TripRoundTrip, nil
	case "oneway", "2":
		return TripOneWay, nil
	case "multicity", "3":
		return TripMultiCity, nil
	}
	return TripUnspecified, fmt.Errorf("unknown trip type %q", s)
}

// RawQuery is a flight-search request as extracted from conversation.
// Every field is free text; nothing has been checked yet.
type RawQuery struct {
	DepartureID   string `json:"departure_id"`
	ArrivalID     string `json:"arrival_id"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	TripType      string `json:"trip_type,omitempty"`
	Country       string `json:"country,omitempty"`
	Language      string `json:"language,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// FlightQuery is a request that passed validation. Only Validator
// constructs one.
type FlightQuery struct {
	DepartureID   string
	ArrivalID     string
	DepartureDate time.Time
	ReturnDate    *time.Time
	TripType      TripType
	Country       string
	Language      string
	Currency      string
}

// OutboundDate is DepartureDate in wire form.
func (q *FlightQuery) OutboundDate() string {
	return q.DepartureDate.Format(DateLayout)
}

// ReturnDateString is ReturnDate in wire form, or "" when absent.
func (q *FlightQuery) ReturnDateString() string {
	if q.ReturnDate == nil {
		return ""
	}
	return q.ReturnDate.Format(DateLayout)
}

// Violation names one failed rule.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError rejects a whole RawQuery. It lists every rule that failed.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("Validation Failed with %d errors:\n- %s", len(msgs), strings.Join(msgs, "\n- "))
}

// Rule identifiers reported in Violation.Rule.
const (
	RuleCodeFormat      = "code_format"
	RuleRequired        = "required"
	RuleDateFormat      = "date_format"
	RulePastDate        = "past_date"
	RuleReturnRequired  = "return_required"
	RuleReturnForbidden = "return_forbidden"
	RuleReturnNotAfter  = "return_not_after_departure"
	RuleTripType        = "trip_type"
	RuleLocale          = "locale"
)

var (
	airportCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)
	kgmidPattern       = regexp.MustCompile(`^/[mg]/[0-9a-zA-Z_]+$`)
)

// Validator checks and normalizes RawQuery values.
type Validator struct {
	resolver *Resolver
	now      func() time.Time
}

// NewValidator creates a validator. now defaults to time.Now.
func NewValidator(resolver *Resolver, now func() time.Time) *Validator {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{resolver: resolver, now: now}
}

// Validate resolves both endpoints, infers the trip type and checks every
// rule. It returns either a complete FlightQuery or a *ValidationError.
func (v *Validator) Validate(raw RawQuery) (*FlightQuery, error) {
	var violations []Violation
	fail := func(field, rule, format string, args ...any) {
		violations = append(violations, Violation{Field: field, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	q := &FlightQuery{
		DepartureID: v.resolver.Resolve(raw.DepartureID),
		ArrivalID:   v.resolver.Resolve(raw.ArrivalID),
	}
	for _, ep := range []struct{ field, raw, resolved string }{
		{"departure_id", raw.DepartureID, q.DepartureID},
		{"arrival_id", raw.ArrivalID, q.ArrivalID},
	} {
		switch {
		case strings.TrimSpace(ep.raw) == "":
			fail(ep.field, RuleRequired, "%s is required", ep.field)
		case !validEndpoint(ep.resolved):
			fail(ep.field, RuleCodeFormat, "%s %q must be a 3-letter airport code or a knowledge-graph id starting with /m/", ep.field, ep.raw)
		}
	}

	now := v.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	depOK := false
	if strings.TrimSpace(raw.DepartureDate) == "" {
		fail("departure_date", RuleRequired, "departure_date is required (YYYY-MM-DD)")
	} else if d, err := time.Parse(DateLayout, strings.TrimSpace(raw.DepartureDate)); err != nil {
		fail("departure_date", RuleDateFormat, "departure_date %q is not a valid YYYY-MM-DD date", raw.DepartureDate)
	} else if d.Before(today) {
		fail("departure_date", RulePastDate, "departure_date %s is in the past (today is %s)", d.Format(DateLayout), today.Format(DateLayout))
	} else {
		q.DepartureDate = d
		depOK = true
	}

	if s := strings.TrimSpace(raw.ReturnDate); s != "" {
		if d, err := time.Parse(DateLayout, s); err != nil {
			fail("return_date", RuleDateFormat, "return_date %q is not a valid YYYY-MM-DD date", raw.ReturnDate)
		} else {
			q.ReturnDate = &d
		}
	}

	tripType, err := ParseTripType(raw.TripType)
	if err != nil {
		fail("trip_type", RuleTripType, "trip_type %q must be round-trip, one-way or multi-city", raw.TripType)
	}
	if tripType == TripUnspecified && err == nil {
		tripType = TripOneWay
		if strings.TrimSpace(raw.ReturnDate) != "" {
			tripType = TripRoundTrip
		}
	}
	q.TripType = tripType

	switch tripType {
	case TripRoundTrip:
		if strings.TrimSpace(raw.ReturnDate) == "" {
			fail("return_date", RuleReturnRequired, "return_date is required for a round-trip")
		} else if q.ReturnDate != nil && depOK && !q.ReturnDate.After(q.DepartureDate) {
			fail("return_date", RuleReturnNotAfter, "return_date %s must be after departure_date %s", q.ReturnDateString(), q.OutboundDate())
		}
	case TripOneWay:
		if strings.TrimSpace(raw.ReturnDate) != "" {
			fail("return_date", RuleReturnForbidden, "return_date must not be set for a one-way trip")
		}
	}

	if s := strings.TrimSpace(raw.Country); s != "" {
		if r, err := language.ParseRegion(s); err != nil || len(s) != 2 {
			fail("country", RuleLocale, "country %q must be a 2-letter ISO 3166 code", raw.Country)
		} else {
			q.Country = strings.ToLower(r.String())
		}
	}
	if s := strings.TrimSpace(raw.Language); s != "" {
		if tag, err := language.Parse(s); err != nil {
			fail("language", RuleLocale, "language %q is not a valid language code", raw.Language)
		} else {
			q.Language = tag.String()
		}
	}
	if s := strings.TrimSpace(raw.Currency); s != "" {
		if unit, err := currency.ParseISO(s); err != nil {
			fail("currency", RuleLocale, "currency %q is not an ISO 4217 code", raw.Currency)
		} else {
			q.Currency = unit.String()
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return q, nil
}

func validEndpoint(id string) bool {
	return airportCodePattern.MatchString(id) || kgmidPattern.MatchString(id)
}

// TripTypeParam renders the provider's numeric type parameter.
func (q *FlightQuery) TripTypeParam() string {
	if q.TripType == TripUnspecified {
		return ""
	}
	return strconv.Itoa(int(q.TripType))
}
