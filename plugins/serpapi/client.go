// Package serpapi queries Google Flights through SerpApi.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/orm"
	"github.com/va6996/travelassist/tools"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://serpapi.com/search"
	engine         = "google_flights"
	maxErrorBody   = 64 << 10
)

// ErrMissingAPIKey is returned by Search when no key is configured.
var ErrMissingAPIKey = errors.New("serpapi: api key is not configured")

// ProviderError reports a failed call to SerpApi. StatusCode is 0 for
// transport failures, in which case Err holds the cause.
type ProviderError struct {
	StatusCode int
	Payload    any
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("serpapi request failed: %v", e.Err)
	}
	return fmt.Sprintf("serpapi returned status %d: %v", e.StatusCode, e.Payload)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Cache stores raw response bodies keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Client is the SerpApi Google Flights client
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      Cache

	limiter    *rate.Limiter
	SearchTool *SearchTool
}

// Options configures NewClient.
type Options struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Cache         Cache
}

// NewClient creates a client and, when gk and registry are set, registers
// the search_flights tool backed by validator.
func NewClient(opts Options, validator *flights.Validator, gk *genkit.Genkit, registry *tools.Registry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	c := &Client{
		APIKey:     opts.APIKey,
		BaseURL:    opts.BaseURL,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		Cache:      opts.Cache,
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}

	c.SearchTool = NewSearchTool(c, validator, gk, registry)
	return c
}

// Params builds the query string for q, without the api key. Optional
// fields are included only when set.
func Params(q *flights.FlightQuery) url.Values {
	params := url.Values{}
	params.Set("engine", engine)
	params.Set("departure_id", q.DepartureID)
	params.Set("arrival_id", q.ArrivalID)
	params.Set("outbound_date", q.OutboundDate())
	if rd := q.ReturnDateString(); rd != "" {
		params.Set("return_date", rd)
	}
	if t := q.TripTypeParam(); t != "" {
		params.Set("type", t)
	}
	if q.Country != "" {
		params.Set("gl", q.Country)
	}
	if q.Language != "" {
		params.Set("hl", q.Language)
	}
	if q.Currency != "" {
		params.Set("currency", q.Currency)
	}
	params.Set("output", "json")
	return params
}

// Search runs one Google Flights query. Non-2xx answers and transport
// failures come back as *ProviderError; nothing is retried.
func (c *Client) Search(ctx context.Context, q *flights.FlightQuery) (map[string]any, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if q == nil {
		return nil, fmt.Errorf("flight query is required")
	}

	params := Params(q)
	cacheKey := orm.CacheKey("serpapi", params.Encode())
	if c.Cache != nil {
		if body, ok, err := c.Cache.Get(ctx, cacheKey); err != nil {
			log.Warnf(ctx, "SerpApi cache read failed: %v", err)
		} else if ok {
			var out map[string]any
			if err := json.Unmarshal(body, &out); err == nil {
				log.Debugf(ctx, "SerpApi cache hit for %s", params.Encode())
				return out, nil
			}
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Err: err}
		}
	}

	params.Set("api_key", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	log.Infof(ctx, "SerpApi search %s -> %s on %s (type %s)", q.DepartureID, q.ArrivalID, q.OutboundDate(), q.TripType)
	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var payload any
		if err := json.Unmarshal(body, &payload); err == nil {
			log.Errorf(ctx, "SerpApi error response: %v", payload)
		} else {
			payload = string(body)
			log.Errorf(ctx, "SerpApi error response (non-JSON): %s", body)
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Payload: payload}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Err: err}
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Payload: string(body), Err: fmt.Errorf("decode response: %w", err)}
	}
	log.Debugf(ctx, "SerpApi search completed in %s", time.Since(start))

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, cacheKey, body); err != nil {
			log.Warnf(ctx, "SerpApi cache write failed: %v", err)
		}
	}
	return out, nil
}
