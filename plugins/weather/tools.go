package weather

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/tools"
)

// ToolName is the name the model uses to ask for the weather.
const ToolName = "get_weather"

// WeatherInput is the argument object of get_weather.
type WeatherInput struct {
	City        string `json:"city" description:"City name, e.g. Paris"`
	CountryCode string `json:"country_code,omitempty" description:"Optional ISO 3166 country code, e.g. FR"`
}

// WeatherTool exposes CurrentByCity to the model.
type WeatherTool struct {
	Client *Client
}

// NewWeatherTool initializes and registers the get_weather tool
func NewWeatherTool(c *Client, gk *genkit.Genkit, registry *tools.Registry) *WeatherTool {
	t := &WeatherTool{Client: c}
	if gk == nil || registry == nil {
		return t
	}
	registry.Register(genkit.DefineTool[*WeatherInput, Report](
		gk,
		ToolName,
		"Returns the current weather (metric units) for a city. Use it when the user asks about weather at a destination.",
		func(ctx *ai.ToolContext, input *WeatherInput) (Report, error) {
			return t.Execute(ctx, input), nil
		},
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		city, _ := args["city"].(string)
		country, _ := args["country_code"].(string)
		return t.Execute(ctx, &WeatherInput{City: city, CountryCode: country}), nil
	})
	return t
}

func (t *WeatherTool) Execute(ctx context.Context, input *WeatherInput) Report {
	if input == nil {
		return errorReport("city is required")
	}
	return t.Client.CurrentByCity(ctx, input.City, input.CountryCode)
}
