// Package googlemaps geocodes city names with the Google Maps Geocoding API.
package googlemaps

import (
	"context"
	"fmt"
	"strings"

	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/plugins/weather"
	"googlemaps.github.io/maps"
)

// Client handles Google Maps API requests
type Client struct {
	APIKey     string
	MapsClient *maps.Client
}

// NewClient creates a new Google Maps API client. Extra options (for
// example maps.WithBaseURL) are passed to the SDK.
func NewClient(apiKey string, opts ...maps.ClientOption) (*Client, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &Client{
		APIKey:     apiKey,
		MapsClient: c,
	}, nil
}

// Geocode implements weather.Geocoder. It returns (nil, nil) when Google
// finds nothing for the query.
func (c *Client) Geocode(ctx context.Context, city, countryCode string) (*weather.Place, error) {
	if c.MapsClient == nil {
		return nil, fmt.Errorf("maps client not initialized")
	}

	req := &maps.GeocodingRequest{Address: city}
	if countryCode != "" {
		req.Components = map[maps.Component]string{
			maps.ComponentCountry: strings.ToUpper(countryCode),
		}
	}

	results, err := c.MapsClient.Geocode(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, nil
		}
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	r := results[0]
	place := &weather.Place{
		Name: city,
		Lat:  r.Geometry.Location.Lat,
		Lon:  r.Geometry.Location.Lng,
	}
	for _, comp := range r.AddressComponents {
		for _, typ := range comp.Types {
			switch typ {
			case "locality":
				place.Name = comp.LongName
			case "country":
				place.Country = comp.ShortName
			}
		}
	}
	log.Debugf(ctx, "Geocoded %q to %s (%f, %f)", city, place.Label(), place.Lat, place.Lon)
	return place, nil
}
