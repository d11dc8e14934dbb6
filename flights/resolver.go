package flights

import "strings"

// cityAirports maps colloquial city names to the airport picked as the
// default for that city. Keys are lower case.
var cityAirports = map[string]string{
	"london":        "LHR",
	"new york":      "JFK",
	"new york city": "JFK",
	"nyc":           "JFK",
	"paris":         "CDG",
	"los angeles":   "LAX",
	"la":            "LAX",
	"san francisco": "SFO",
	"sf":            "SFO",
	"chicago":       "ORD",
	"washington":    "IAD",
	"dc":            "IAD",
	"boston":        "BOS",
	"miami":         "MIA",
	"seattle":       "SEA",
	"toronto":       "YYZ",
	"tokyo":         "HND",
	"osaka":         "KIX",
	"beijing":       "PEK",
	"shanghai":      "PVG",
	"hong kong":     "HKG",
	"singapore":     "SIN",
	"dubai":         "DXB",
	"frankfurt":     "FRA",
	"berlin":        "BER",
	"munich":        "MUC",
	"amsterdam":     "AMS",
	"madrid":        "MAD",
	"barcelona":     "BCN",
	"rome":          "FCO",
	"milan":         "MXP",
	"zurich":        "ZRH",
	"istanbul":      "IST",
	"sydney":        "SYD",
	"melbourne":     "MEL",
	"mumbai":        "BOM",
	"delhi":         "DEL",
	"new delhi":     "DEL",
	"bangkok":       "BKK",
	"seoul":         "ICN",
	"mexico city":   "MEX",
	"sao paulo":     "GRU",
}

// Resolver turns free-form city or airport tokens into airport codes. It
// is immutable after construction and safe for concurrent use.
type Resolver struct {
	table map[string]string
}

// NewResolver builds a resolver from the built-in table. extra entries
// override built-ins; keys are matched case-insensitively.
func NewResolver(extra map[string]string) *Resolver {
	table := make(map[string]string, len(cityAirports)+len(extra))
	for k, v := range cityAirports {
		table[k] = v
	}
	for k, v := range extra {
		table[normalizeToken(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	return &Resolver{table: table}
}

// Resolve never fails: unknown tokens come back trimmed and upper-cased,
// and knowledge-graph ids ("/m/...") come back trimmed but otherwise
// untouched. Rejecting malformed codes is the validator's job.
func (r *Resolver) Resolve(token string) string {
	trimmed := strings.TrimSpace(token)
	if strings.HasPrefix(trimmed, "/") {
		return trimmed
	}
	if code, ok := r.table[normalizeToken(trimmed)]; ok {
		return code
	}
	return strings.ToUpper(trimmed)
}

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
