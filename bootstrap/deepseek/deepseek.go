// Package deepseek is a genkit plugin for DeepSeek's OpenAI-compatible API.
package deepseek

import (
	"context"
	"fmt"
	"os"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai"
	"github.com/openai/openai-go/option"
)

const provider = "deepseek"

// DefaultBaseURL is used when DeepSeek.BaseURL is empty.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// ChatSupports describes deepseek-chat: text in, text or tool calls out.
var ChatSupports = ai.ModelSupports{
	Multiturn:  true,
	SystemRole: true,
	Tools:      true,
	Media:      false,
}

// DeepSeek is a plugin that provides integration with DeepSeek models.
type DeepSeek struct {
	// APIKey is the API key for DeepSeek. If empty, DEEPSEEK_API_KEY is consulted.
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	openAICompatible *compat_oai.OpenAICompatible
}

// Name implements genkit.Plugin.
func (d *DeepSeek) Name() string {
	return provider
}

// Init implements genkit.Plugin.
func (d *DeepSeek) Init(ctx context.Context) []api.Action {
	apiKey := d.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if apiKey == "" {
		panic("deepseek plugin initialization failed: apiKey is required (set DEEPSEEK_API_KEY or pass APIKey)")
	}

	baseURL := d.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if d.openAICompatible == nil {
		d.openAICompatible = &compat_oai.OpenAICompatible{}
	}
	d.openAICompatible.Opts = []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}
	d.openAICompatible.Provider = provider

	actions := d.openAICompatible.Init(ctx)
	for _, id := range []string{"deepseek-chat", "deepseek-reasoner"} {
		actions = append(actions, d.DefineModelWithDefaults(id).(api.Action))
	}
	return actions
}

// Model returns a model by name.
func (d *DeepSeek) Model(g *genkit.Genkit, name string) ai.Model {
	return d.openAICompatible.Model(g, api.NewName(provider, name))
}

// DefineModel defines a model with the given ID and options.
func (d *DeepSeek) DefineModel(id string, opts ai.ModelOptions) ai.Model {
	return d.openAICompatible.DefineModel(provider, id, opts)
}

// DefineModelWithDefaults defines id with ChatSupports.
func (d *DeepSeek) DefineModelWithDefaults(id string) ai.Model {
	supports := ChatSupports
	return d.DefineModel(id, ai.ModelOptions{
		Label:    fmt.Sprintf("DeepSeek %s", id),
		Supports: &supports,
		Versions: []string{id},
	})
}

// ListActions returns a list of actions provided by this plugin.
func (d *DeepSeek) ListActions(ctx context.Context) []api.ActionDesc {
	return d.openAICompatible.ListActions(ctx)
}

// ResolveAction resolves an action by type and name.
func (d *DeepSeek) ResolveAction(atype api.ActionType, name string) api.Action {
	return d.openAICompatible.ResolveAction(atype, name)
}
