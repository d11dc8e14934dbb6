// Package nager looks up public holidays with the Nager.Date API so the
// assistant can flag closures and crowds on travel dates.
package nager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/orm"
	"github.com/va6996/travelassist/tools"
)

const DefaultBaseURL = "https://date.nager.at/api/v3"

// Cache stores raw response bodies keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Holiday represents a public holiday from Nager.Date API
type Holiday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Global      bool     `json:"global"`
	Counties    []string `json:"counties,omitempty"`
	Types       []string `json:"types,omitempty"`
}

// StatusError is a non-200 answer from Nager.Date.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nager.date request failed with status %d", e.StatusCode)
}

// Client handles Nager.Date API requests
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      Cache

	HolidaysTool *HolidaysTool
}

// Options configures NewClient.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Cache   Cache
}

// NewClient creates a new Nager.Date API client and registers
// get_public_holidays when gk and registry are set.
func NewClient(opts Options, gk *genkit.Genkit, registry *tools.Registry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		BaseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		Cache:      opts.Cache,
	}
	c.HolidaysTool = NewHolidaysTool(c, gk, registry)
	return c
}

// PublicHolidays returns the public holidays of one country and year.
// Unknown countries come back as a *StatusError with 404.
func (c *Client) PublicHolidays(ctx context.Context, year int, countryCode string) ([]Holiday, error) {
	countryCode = strings.ToUpper(countryCode)
	cacheKey := orm.CacheKey("nager", strconv.Itoa(year), countryCode)
	if c.Cache != nil {
		if body, ok, err := c.Cache.Get(ctx, cacheKey); err != nil {
			log.Warnf(ctx, "Holiday cache read failed: %v", err)
		} else if ok {
			var holidays []Holiday
			if err := json.Unmarshal(body, &holidays); err == nil {
				return holidays, nil
			}
		}
	}

	url := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.BaseURL, year, countryCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get public holidays: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var holidays []Holiday
	if err := json.Unmarshal(body, &holidays); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, cacheKey, body); err != nil {
			log.Warnf(ctx, "Holiday cache write failed: %v", err)
		}
	}
	return holidays, nil
}

// HolidaysBetween returns the holidays from start to end inclusive, in date
// order, fetching every calendar year the range touches.
func (c *Client) HolidaysBetween(ctx context.Context, countryCode string, start, end time.Time) ([]Holiday, error) {
	from := start.Format(dateLayout)
	to := end.Format(dateLayout)

	var out []Holiday
	for year := start.Year(); year <= end.Year(); year++ {
		holidays, err := c.PublicHolidays(ctx, year, countryCode)
		if err != nil {
			return nil, err
		}
		for _, h := range holidays {
			// ISO dates compare correctly as strings.
			if h.Date >= from && h.Date <= to {
				out = append(out, h)
			}
		}
	}
	return out, nil
}
