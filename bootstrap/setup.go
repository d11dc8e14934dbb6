// Package bootstrap wires configuration into a ready TravelAgent.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/va6996/travelassist/agents"
	"github.com/va6996/travelassist/bootstrap/deepseek"
	"github.com/va6996/travelassist/config"
	"github.com/va6996/travelassist/corpus"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/orm"
	"github.com/va6996/travelassist/plugins/core"
	"github.com/va6996/travelassist/plugins/googlemaps"
	"github.com/va6996/travelassist/plugins/nager"
	"github.com/va6996/travelassist/plugins/serpapi"
	"github.com/va6996/travelassist/plugins/weather"
	"github.com/va6996/travelassist/providers/gemini"
	"github.com/va6996/travelassist/rag"
	"github.com/va6996/travelassist/tools"
)

// App holds the initialized components of the application
type App struct {
	Config      *config.Config
	TravelAgent *agents.TravelAgent
	Genkit      *genkit.Genkit
	Registry    *tools.Registry
	Model       agents.Model
	Store       *corpus.Store
	Retriever   *rag.Retriever
	Validator   *flights.Validator
	SerpAPI     *serpapi.Client
	Weather     *weather.Client
	Cache       *orm.Cache

	closers []func() error
}

// Close releases clients opened by Setup.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Setup initializes the application components based on the configuration
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// 1. Genkit with the configured AI plugin
	gk, model, err := initGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Genkit = gk

	// 2. Corpus and retrieval
	app.Store = corpus.NewStore(cfg.Corpus.Dir)
	app.Retriever = rag.NewRetriever(app.Store)

	// 3. Tools
	app.Registry = tools.NewRegistry()
	app.Validator = flights.NewValidator(flights.NewResolver(nil), nil)

	serpOpts := serpapi.Options{
		APIKey:        cfg.SerpAPI.APIKey,
		BaseURL:       cfg.SerpAPI.BaseURL,
		Timeout:       cfg.SerpAPI.Timeout,
		RatePerSecond: cfg.SerpAPI.RatePerSecond,
	}
	if cfg.Cache.Enabled {
		cache, err := openCache(cfg.Cache)
		if err != nil {
			log.Warnf(ctx, "Response cache disabled: %v", err)
		} else {
			app.Cache = cache
			serpOpts.Cache = cache
		}
	}
	if cfg.SerpAPI.APIKey == "" {
		log.Warnf(ctx, "SERPAPI_KEY is not set; flight searches will fail")
	}
	app.SerpAPI = serpapi.NewClient(serpOpts, app.Validator, gk, app.Registry)

	core.NewClient(gk, app.Registry)

	weatherOpts := weather.Options{
		APIKey:  cfg.Weather.APIKey,
		BaseURL: cfg.Weather.BaseURL,
		GeoURL:  cfg.Weather.GeoURL,
		Timeout: cfg.Weather.Timeout,
	}
	if cfg.GoogleMaps.APIKey != "" {
		maps, err := googlemaps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Maps client: %w", err)
		}
		weatherOpts.Geocoder = maps
	}
	app.Weather = weather.NewClient(weatherOpts, gk, app.Registry)

	holidayOpts := nager.Options{
		BaseURL: cfg.Holidays.BaseURL,
		Timeout: cfg.Holidays.Timeout,
	}
	if app.Cache != nil {
		holidayOpts.Cache = app.Cache
	}
	nager.NewClient(holidayOpts, gk, app.Registry)

	log.Infof(ctx, "Registered tools: %v", app.Registry.Names())

	// 4. Model and agent
	if cfg.AI.Plugin == "gemini-sdk" {
		client, err := gemini.NewClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, app.Registry.Definitions())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini SDK client: %w", err)
		}
		client.Temperature = float32(cfg.AI.Temperature)
		client.MaxTokens = int32(cfg.AI.MaxOutputTokens)
		app.closers = append(app.closers, client.Close)
		app.Model = client
	} else {
		app.Model = agents.NewGenkitModel(gk, model, app.Registry, cfg.AI.Temperature, cfg.AI.MaxOutputTokens)
	}

	app.TravelAgent = agents.NewTravelAgent(app.Model, app.Retriever, app.Registry, agents.Options{
		WindowSize:        cfg.Chat.WindowSize,
		TopK:              cfg.Chat.TopK,
		MaxResults:        cfg.Corpus.MaxResults,
		MaxToolRounds:     cfg.Chat.MaxToolRounds,
		MaxSearchAttempts: cfg.Chat.MaxSearchAttempts,
		ResponseTimeout:   cfg.Server.ResponseTimeout,
	})
	return app, nil
}

func initGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, ai.Model, error) {
	switch cfg.AI.Plugin {
	case "ollama":
		log.Infof(ctx, "Using Ollama Plugin (Model: %s)...", cfg.AI.Ollama.Model)
		ollamaPlugin := &ollama.Ollama{
			ServerAddress: cfg.AI.Ollama.BaseURL,
		}
		gk := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		model := ollamaPlugin.DefineModel(gk, ollama.ModelDefinition{
			Name: cfg.AI.Ollama.Model,
			Type: "chat",
		}, &ai.ModelOptions{
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
				Tools:      true,
				Media:      false,
			},
		})
		return gk, model, nil

	case "gemini":
		log.Infof(ctx, "Using Gemini Plugin (Model: %s)...", cfg.AI.Gemini.Model)
		if cfg.AI.Gemini.APIKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY must be set (or choose another AI_PLUGIN)")
		}
		gk := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{
			APIKey: cfg.AI.Gemini.APIKey,
		}))
		return gk, googlegenai.GoogleAIModel(gk, cfg.AI.Gemini.Model), nil

	case "gemini-sdk":
		log.Infof(ctx, "Using Gemini SDK (Model: %s)...", cfg.AI.Gemini.Model)
		if cfg.AI.Gemini.APIKey == "" {
			return nil, nil, fmt.Errorf("GEMINI_API_KEY must be set (or choose another AI_PLUGIN)")
		}
		// Tools are still defined through genkit; the SDK client calls the model.
		return genkit.Init(ctx), nil, nil

	default:
		log.Infof(ctx, "Using DeepSeek Plugin (Model: %s)...", cfg.AI.DeepSeek.Model)
		if cfg.AI.DeepSeek.APIKey == "" {
			return nil, nil, fmt.Errorf("DEEPSEEK_API_KEY must be set (or choose another AI_PLUGIN)")
		}
		plugin := &deepseek.DeepSeek{
			APIKey:  cfg.AI.DeepSeek.APIKey,
			BaseURL: cfg.AI.DeepSeek.BaseURL,
		}
		gk := genkit.Init(ctx, genkit.WithPlugins(plugin))
		model := plugin.Model(gk, cfg.AI.DeepSeek.Model)
		if model == nil {
			model = plugin.DefineModelWithDefaults(cfg.AI.DeepSeek.Model)
		}
		return gk, model, nil
	}
}

func openCache(cfg config.CacheConfig) (*orm.Cache, error) {
	db, err := orm.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return orm.NewCache(db, cfg.TTL)
}
