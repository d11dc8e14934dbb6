package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/tools"
)

// GenkitModel adapts a genkit model to Model. Tool requests are returned
// to the caller instead of being run by genkit.
type GenkitModel struct {
	genkit   *genkit.Genkit
	model    ai.Model
	registry *tools.Registry
	config   *ai.GenerationCommonConfig
}

// NewGenkitModel creates a Model offering every tool in registry.
func NewGenkitModel(gk *genkit.Genkit, model ai.Model, registry *tools.Registry, temperature float64, maxOutputTokens int) *GenkitModel {
	return &GenkitModel{
		genkit:   gk,
		model:    model,
		registry: registry,
		config: &ai.GenerationCommonConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	}
}

func (m *GenkitModel) Complete(ctx context.Context, system string, messages []Message) (Completion, error) {
	history := make([]*ai.Message, 0, len(messages)+1)
	history = append(history, ai.NewSystemTextMessage(system))
	for _, msg := range messages {
		history = append(history, toGenkitMessage(msg))
	}

	var toolRefs []ai.ToolRef
	if m.registry != nil {
		for _, t := range m.registry.GetTools() {
			toolRefs = append(toolRefs, t)
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModel(m.model),
		ai.WithMessages(history...),
		ai.WithConfig(m.config),
		ai.WithReturnToolRequests(true),
	}
	if len(toolRefs) > 0 {
		opts = append(opts, ai.WithTools(toolRefs...))
	}

	log.Debugf(ctx, "Calling genkit.Generate with %d messages, %d tools", len(history), len(toolRefs))
	resp, err := genkit.Generate(ctx, m.genkit, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate failed: %w", err)
	}

	if reqs := resp.ToolRequests(); len(reqs) > 0 {
		out := make([]ToolRequest, 0, len(reqs))
		for _, r := range reqs {
			args, err := toArguments(r.Input)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", r.Name, err)
			}
			out = append(out, ToolRequest{Ref: r.Ref, Name: r.Name, Arguments: args})
		}
		return ToolCompletion(out), nil
	}
	return DirectAnswer{Text: resp.Text()}, nil
}

func toGenkitMessage(msg Message) *ai.Message {
	switch {
	case msg.ToolRequest != nil:
		return ai.NewMessage(ai.RoleModel, nil, ai.NewToolRequestPart(&ai.ToolRequest{
			Ref:   msg.ToolRequest.Ref,
			Name:  msg.ToolRequest.Name,
			Input: msg.ToolRequest.Arguments,
		}))
	case msg.ToolResult != nil:
		return ai.NewMessage(ai.RoleTool, nil, ai.NewToolResponsePart(&ai.ToolResponse{
			Ref:    msg.ToolResult.Ref,
			Name:   msg.ToolResult.Name,
			Output: msg.ToolResult.Output,
		}))
	case msg.Role == RoleModel:
		return ai.NewModelTextMessage(msg.Content)
	default:
		return ai.NewUserTextMessage(msg.Content)
	}
}

// toArguments normalizes a tool input into a JSON object.
func toArguments(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
		}
		return out, nil
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return out, nil
}
