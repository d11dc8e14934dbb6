package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config aggregates all application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	AI         AIConfig         `yaml:"ai"`
	SerpAPI    SerpAPIConfig    `yaml:"serpapi"`
	Weather    WeatherConfig    `yaml:"weather"`
	GoogleMaps GoogleMapsConfig `yaml:"googlemaps"`
	Holidays   HolidaysConfig   `yaml:"holidays"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Cache      CacheConfig      `yaml:"cache"`
	Chat       ChatConfig       `yaml:"chat"`
	LogLevel   string           `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8000"`
	ResponseTimeout time.Duration `yaml:"response_timeout" env:"RESPONSE_TIMEOUT" env-default:"90s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"*"`
}

type AIConfig struct {
	Plugin          string         `yaml:"plugin" env:"AI_PLUGIN" env-default:"deepseek"`
	Temperature     float64        `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.7"`
	MaxOutputTokens int            `yaml:"max_output_tokens" env:"AI_MAX_OUTPUT_TOKENS" env-default:"1000"`
	DeepSeek        DeepSeekConfig `yaml:"deepseek"`
	Gemini          GeminiConfig   `yaml:"gemini"`
	Ollama          OllamaConfig   `yaml:"ollama"`
}

type DeepSeekConfig struct {
	APIKey  string `yaml:"api_key" env:"DEEPSEEK_API_KEY"`
	BaseURL string `yaml:"base_url" env:"DEEPSEEK_BASE_URL" env-default:"https://api.deepseek.com/v1"`
	Model   string `yaml:"model" env:"DEEPSEEK_MODEL" env-default:"deepseek-chat"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key" env:"GEMINI_API_KEY"`
	Model  string `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`
}

type OllamaConfig struct {
	Model   string `yaml:"model" env:"OLLAMA_MODEL" env-default:"qwen3:4b"`
	BaseURL string `yaml:"base_url" env:"OLLAMA_BASE_URL" env-default:"http://localhost:11434"`
}

type SerpAPIConfig struct {
	APIKey  string        `yaml:"api_key" env:"SERPAPI_KEY"`
	BaseURL string        `yaml:"base_url" env:"SERPAPI_BASE_URL" env-default:"https://serpapi.com/search"`
	Timeout time.Duration `yaml:"timeout" env:"SERPAPI_TIMEOUT" env-default:"30s"`

	// RatePerSecond paces outbound searches; 0 disables pacing.
	RatePerSecond float64 `yaml:"rate_per_second" env:"SERPAPI_RATE_PER_SECOND" env-default:"5"`
}

type WeatherConfig struct {
	APIKey  string        `yaml:"api_key" env:"OPENWEATHER_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"OPENWEATHER_BASE_URL" env-default:"https://api.openweathermap.org/data/3.0/onecall"`
	GeoURL  string        `yaml:"geo_url" env:"OPENWEATHER_GEO_URL" env-default:"http://api.openweathermap.org/geo/1.0/direct"`
	Timeout time.Duration `yaml:"timeout" env:"OPENWEATHER_TIMEOUT" env-default:"10s"`
}

type GoogleMapsConfig struct {
	APIKey string `yaml:"api_key" env:"GOOGLE_MAPS_API_KEY"`
}

type HolidaysConfig struct {
	BaseURL string        `yaml:"base_url" env:"NAGER_BASE_URL" env-default:"https://date.nager.at/api/v3"`
	Timeout time.Duration `yaml:"timeout" env:"NAGER_TIMEOUT" env-default:"10s"`
}

type CorpusConfig struct {
	Dir        string `yaml:"dir" env:"CORPUS_DIR" env-default:"data"`
	MaxResults int    `yaml:"max_results" env:"CORPUS_MAX_RESULTS" env-default:"2"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"true"`
	Driver  string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"sqlite"`
	DSN     string        `yaml:"dsn" env:"CACHE_DSN" env-default:"file::memory:?cache=shared"`
	TTL     time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"15m"`
}

type ChatConfig struct {
	WindowSize        int `yaml:"window_size" env:"CHAT_WINDOW_SIZE" env-default:"3"`
	TopK              int `yaml:"top_k" env:"CHAT_TOP_K" env-default:"3"`
	MaxToolRounds     int `yaml:"max_tool_rounds" env:"CHAT_MAX_TOOL_ROUNDS" env-default:"4"`
	MaxSearchAttempts int `yaml:"max_search_attempts" env:"CHAT_MAX_SEARCH_ATTEMPTS" env-default:"2"`
}

// Load reads .env (if present), then config.yaml, then environment variables.
// Priority: Env Vars > Config File > Defaults
func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		// No usable file: fall back to env vars and defaults only.
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Plugin {
	case "deepseek", "gemini", "gemini-sdk", "ollama":
	default:
		return fmt.Errorf("unknown AI_PLUGIN %q (want deepseek, gemini, gemini-sdk or ollama)", c.AI.Plugin)
	}
	if c.Chat.WindowSize <= 0 {
		return fmt.Errorf("chat window size must be positive, got %d", c.Chat.WindowSize)
	}
	if c.Chat.TopK <= 0 {
		return fmt.Errorf("chat top-k must be positive, got %d", c.Chat.TopK)
	}
	switch c.Cache.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q (want sqlite or postgres)", c.Cache.Driver)
	}
	return nil
}
