// Package weather reports current conditions for a city using the
// OpenWeatherMap geocoding and One Call 3.0 APIs.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/tools"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"
	DefaultGeoURL  = "http://api.openweathermap.org/geo/1.0/direct"
)

// Place is a geocoded location.
type Place struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

// Label renders "Name, CC" or just the name when the country is unknown.
func (p *Place) Label() string {
	if p.Country == "" {
		return p.Name
	}
	return p.Name + ", " + p.Country
}

// Geocoder resolves a city to coordinates. It returns (nil, nil) when the
// city is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, city, countryCode string) (*Place, error)
}

// Report is the result of a lookup. Status is "success" or "error"; lookups
// never return a Go error so callers can hand the report straight to the model.
type Report struct {
	Status   string      `json:"status"`
	Location string      `json:"location,omitempty"`
	Data     *Conditions `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func errorReport(format string, args ...any) Report {
	return Report{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// Conditions is a current-weather snapshot in metric units.
type Conditions struct {
	Location       string   `json:"location"`
	Temperature    float64  `json:"temperature"`
	FeelsLike      float64  `json:"feels_like"`
	Pressure       int      `json:"pressure"`
	Humidity       int      `json:"humidity"`
	DewPoint       float64  `json:"dew_point"`
	UVI            float64  `json:"uvi"`
	Clouds         int      `json:"clouds"`
	Visibility     int      `json:"visibility"`
	WindSpeed      float64  `json:"wind_speed"`
	WindDeg        int      `json:"wind_deg"`
	WindGust       *float64 `json:"wind_gust,omitempty"`
	Weather        string   `json:"weather"`
	Description    string   `json:"description"`
	Sunrise        int64    `json:"sunrise"`
	Sunset         int64    `json:"sunset"`
	Timezone       string   `json:"timezone"`
	TimezoneOffset int      `json:"timezone_offset"`
}

type oneCallResponse struct {
	Timezone       string `json:"timezone"`
	TimezoneOffset int    `json:"timezone_offset"`
	Current        *struct {
		Sunrise    int64    `json:"sunrise"`
		Sunset     int64    `json:"sunset"`
		Temp       float64  `json:"temp"`
		FeelsLike  float64  `json:"feels_like"`
		Pressure   int      `json:"pressure"`
		Humidity   int      `json:"humidity"`
		DewPoint   float64  `json:"dew_point"`
		UVI        float64  `json:"uvi"`
		Clouds     int      `json:"clouds"`
		Visibility int      `json:"visibility"`
		WindSpeed  float64  `json:"wind_speed"`
		WindDeg    int      `json:"wind_deg"`
		WindGust   *float64 `json:"wind_gust"`
		Weather    []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
}

// Options configures NewClient.
type Options struct {
	APIKey  string
	BaseURL string
	GeoURL  string
	Timeout time.Duration
	// Geocoder overrides the OpenWeatherMap geocoding endpoint.
	Geocoder Geocoder
}

// Client is the OpenWeatherMap client
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	geocoder    Geocoder
	WeatherTool *WeatherTool
}

// NewClient creates a client and registers get_weather when gk and
// registry are set.
func NewClient(opts Options, gk *genkit.Genkit, registry *tools.Registry) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.GeoURL == "" {
		opts.GeoURL = DefaultGeoURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	c := &Client{
		APIKey:     opts.APIKey,
		BaseURL:    opts.BaseURL,
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		geocoder:   opts.Geocoder,
	}
	if c.geocoder == nil {
		c.geocoder = &openWeatherGeocoder{client: c, url: opts.GeoURL}
	}
	c.WeatherTool = NewWeatherTool(c, gk, registry)
	return c
}

// CurrentByCity geocodes city (optionally narrowed by an ISO country code)
// and fetches its current conditions.
func (c *Client) CurrentByCity(ctx context.Context, city, countryCode string) Report {
	if c.APIKey == "" {
		log.Warnf(ctx, "OPENWEATHER_API_KEY not configured")
		return errorReport("OpenWeatherMap API key not configured")
	}
	if strings.TrimSpace(city) == "" {
		return errorReport("city is required")
	}

	place, err := c.geocoder.Geocode(ctx, city, countryCode)
	if err != nil {
		log.Errorf(ctx, "Error in geocoding: %v", err)
		return errorReport("Could not find coordinates for %s", city)
	}
	if place == nil {
		log.Errorf(ctx, "Location not found: %s", city)
		return errorReport("Could not find coordinates for %s", city)
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(place.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(place.Lon, 'f', -1, 64))
	params.Set("appid", c.APIKey)
	params.Set("units", "metric")
	params.Set("lang", "en")
	params.Set("exclude", "minutely,hourly,daily,alerts")

	var raw oneCallResponse
	if err := c.getJSON(ctx, c.BaseURL, params, &raw); err != nil {
		msg := fmt.Sprintf("Error fetching weather data: %v", err)
		log.Errorf(ctx, "%s", msg)
		return errorReport("%s", msg)
	}
	if raw.Current == nil {
		log.Errorf(ctx, "Unexpected response format from weather API: missing current block")
		return errorReport("Unexpected response format from weather API: missing current block")
	}

	label := place.Label()
	cur := raw.Current
	cond := &Conditions{
		Location:       label,
		Temperature:    cur.Temp,
		FeelsLike:      cur.FeelsLike,
		Pressure:       cur.Pressure,
		Humidity:       cur.Humidity,
		DewPoint:       cur.DewPoint,
		UVI:            cur.UVI,
		Clouds:         cur.Clouds,
		Visibility:     cur.Visibility,
		WindSpeed:      cur.WindSpeed,
		WindDeg:        cur.WindDeg,
		WindGust:       cur.WindGust,
		Sunrise:        cur.Sunrise,
		Sunset:         cur.Sunset,
		Timezone:       raw.Timezone,
		TimezoneOffset: raw.TimezoneOffset,
	}
	if len(cur.Weather) > 0 {
		cond.Weather = cur.Weather[0].Main
		cond.Description = capitalize(cur.Weather[0].Description)
	}

	return Report{Status: "success", Location: label, Data: cond}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type openWeatherGeocoder struct {
	client *Client
	url    string
}

func (g *openWeatherGeocoder) Geocode(ctx context.Context, city, countryCode string) (*Place, error) {
	q := city
	if countryCode != "" {
		q = city + "," + countryCode
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("limit", "1")
	params.Set("appid", g.client.APIKey)

	var results []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := g.client.getJSON(ctx, g.url, params, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	r := results[0]
	name := r.Name
	if name == "" {
		name = city
	}
	return &Place{Name: name, Country: r.Country, Lat: r.Lat, Lon: r.Lon}, nil
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
