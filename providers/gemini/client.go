// Package gemini answers chat turns with the Gemini SDK directly, without
// going through genkit. It is selected with AI_PLUGIN=gemini-sdk.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/generative-ai-go/genai"
	"github.com/va6996/travelassist/agents"
	"github.com/va6996/travelassist/log"
	"google.golang.org/api/option"
)

// Client handles Gemini API requests using the official SDK
type Client struct {
	APIKey      string
	ModelName   string
	Temperature float32
	MaxTokens   int32

	client *genai.Client
	tools  []*genai.Tool
}

// Ensure Client satisfies agents.Model
var _ agents.Model = (*Client)(nil)

// NewClient creates a new Gemini API client offering defs as functions.
// Returns an error if the client cannot be initialized
func NewClient(ctx context.Context, apiKey, modelName string, defs []*ai.ToolDefinition, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		APIKey:      apiKey,
		ModelName:   modelName,
		Temperature: 0.7,
		MaxTokens:   1000,
		client:      client,
		tools:       FunctionTools(defs),
	}, nil
}

// Complete sends the transcript and returns the function calls, or the
// text of the first candidate.
func (c *Client) Complete(ctx context.Context, system string, messages []agents.Message) (agents.Completion, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not initialized")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	model := c.client.GenerativeModel(c.ModelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	model.Tools = c.tools
	model.SetTemperature(c.Temperature)
	model.SetMaxOutputTokens(c.MaxTokens)

	contents := ToContents(messages)
	chat := model.StartChat()
	chat.History = contents[:len(contents)-1]

	resp, err := chat.SendMessage(ctx, contents[len(contents)-1].Parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return FromResponse(ctx, resp)
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// FromResponse turns the first candidate into a Completion.
func FromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (agents.Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return nil, fmt.Errorf("no content in candidate")
	}

	if calls := cand.FunctionCalls(); len(calls) > 0 {
		if len(calls) > 1 {
			log.Debugf(ctx, "Gemini returned %d function calls", len(calls))
		}
		reqs := make([]agents.ToolRequest, 0, len(calls))
		for _, call := range calls {
			args := call.Args
			if args == nil {
				args = map[string]any{}
			}
			reqs = append(reqs, agents.ToolRequest{Ref: call.Name, Name: call.Name, Arguments: args})
		}
		return agents.ToolCompletion(reqs), nil
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return agents.DirectAnswer{Text: sb.String()}, nil
}

// ToContents converts the transcript to Gemini contents. Tool results are
// sent with the "function" role.
func ToContents(messages []agents.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.ToolRequest != nil:
			out = append(out, &genai.Content{Role: "model", Parts: []genai.Part{
				genai.FunctionCall{Name: m.ToolRequest.Name, Args: m.ToolRequest.Arguments},
			}})
		case m.ToolResult != nil:
			out = append(out, &genai.Content{Role: "function", Parts: []genai.Part{
				genai.FunctionResponse{Name: m.ToolResult.Name, Response: responseObject(m.ToolResult.Output)},
			}})
		case m.Role == agents.RoleModel:
			out = append(out, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			out = append(out, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return out
}

// responseObject wraps outputs that are not JSON objects under "result".
func responseObject(output any) map[string]any {
	if m, ok := output.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(output)
	if err == nil {
		var m map[string]any
		if json.Unmarshal(b, &m) == nil && m != nil {
			return m
		}
	}
	return map[string]any{"result": output}
}

// FunctionTools declares every tool definition as a Gemini function.
func FunctionTools(defs []*ai.ToolDefinition) []*genai.Tool {
	if len(defs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  ToSchema(d.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// ToSchema converts a JSON schema object into the Gemini subset. Unknown
// keywords are dropped; a nil or empty schema yields nil.
func ToSchema(js map[string]any) *genai.Schema {
	if len(js) == 0 {
		return nil
	}
	s := &genai.Schema{}

	typ, _ := js["type"].(string)
	if list, ok := js["type"].([]any); ok {
		// ["string","null"] style unions become nullable.
		for _, t := range list {
			if name, _ := t.(string); name == "null" {
				s.Nullable = true
			} else if typ == "" {
				typ = name
			}
		}
	}
	switch typ {
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	case "array":
		s.Type = genai.TypeArray
	default:
		s.Type = genai.TypeObject
	}

	if d, ok := js["description"].(string); ok {
		s.Description = d
	}
	if f, ok := js["format"].(string); ok && s.Type == genai.TypeString && (f == "date-time" || f == "enum") {
		s.Format = f
	}
	if enum, ok := js["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	if items, ok := js["items"].(map[string]any); ok {
		s.Items = ToSchema(items)
	}
	if props, ok := js["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = ToSchema(pm)
			}
		}
	}
	switch req := js["required"].(type) {
	case []string:
		s.Required = append(s.Required, req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}
