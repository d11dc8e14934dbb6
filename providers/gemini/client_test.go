package gemini

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/agents"
)

func TestNewClient(t *testing.T) {
	t.Run("EmptyAPIKey", func(t *testing.T) {
		client, err := NewClient(context.Background(), "", "gemini-2.5-flash", nil)
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "API key is required")
	})

	t.Run("ValidAPIKey", func(t *testing.T) {
		client, err := NewClient(context.Background(), "test-api-key-12345", "gemini-2.5-flash", nil)
		require.NoError(t, err)
		assert.Equal(t, "test-api-key-12345", client.APIKey)
		assert.Nil(t, client.tools)

		assert.NoError(t, client.Close())
		// Double close should not panic
		assert.NoError(t, client.Close())
	})
}

func TestComplete_NotInitialized(t *testing.T) {
	c := &Client{APIKey: "test"}
	_, err := c.Complete(context.Background(), "system", []agents.Message{{Role: agents.RoleUser, Content: "hi"}})
	assert.ErrorContains(t, err, "client not initialized")
}

func TestToSchema(t *testing.T) {
	s := ToSchema(map[string]any{
		"type":     "object",
		"required": []any{"departure_id"},
		"properties": map[string]any{
			"departure_id": map[string]any{"type": "string", "description": "Departure airport"},
			"return_date":  map[string]any{"type": []any{"string", "null"}},
			"passengers":   map[string]any{"type": "integer"},
			"cabins": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string", "enum": []any{"economy", "business"}},
			},
		},
	})

	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"departure_id"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["departure_id"].Type)
	assert.Equal(t, "Departure airport", s.Properties["departure_id"].Description)
	assert.True(t, s.Properties["return_date"].Nullable)
	assert.Equal(t, genai.TypeString, s.Properties["return_date"].Type)
	assert.Equal(t, genai.TypeInteger, s.Properties["passengers"].Type)
	assert.Equal(t, genai.TypeArray, s.Properties["cabins"].Type)
	assert.Equal(t, []string{"economy", "business"}, s.Properties["cabins"].Items.Enum)

	assert.Nil(t, ToSchema(nil))
}

func TestFunctionTools(t *testing.T) {
	assert.Nil(t, FunctionTools(nil))

	got := FunctionTools([]*ai.ToolDefinition{
		{Name: "search_flights", Description: "Searches flights", InputSchema: map[string]any{"type": "object"}},
		{Name: "resolve_date", Description: "Resolves dates"},
	})
	require.Len(t, got, 1)
	require.Len(t, got[0].FunctionDeclarations, 2)
	assert.Equal(t, "search_flights", got[0].FunctionDeclarations[0].Name)
	assert.Equal(t, genai.TypeObject, got[0].FunctionDeclarations[0].Parameters.Type)
	assert.Nil(t, got[0].FunctionDeclarations[1].Parameters)
}

func TestToContents(t *testing.T) {
	req := &agents.ToolRequest{Name: "resolve_date", Arguments: map[string]any{"expression": "now"}}
	contents := ToContents([]agents.Message{
		{Role: agents.RoleUser, Content: "when is friday?"},
		{Role: agents.RoleModel, ToolRequest: req},
		{Role: agents.RoleTool, ToolResult: &agents.ToolResult{Name: "resolve_date", Output: "2026-10-23"}},
		{Role: agents.RoleTool, ToolResult: &agents.ToolResult{Name: "search_flights", Output: map[string]any{"error": "bad date"}}},
	})

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, genai.Text("when is friday?"), contents[0].Parts[0])
	assert.Equal(t, genai.FunctionCall{Name: "resolve_date", Args: map[string]any{"expression": "now"}}, contents[1].Parts[0])
	assert.Equal(t, "function", contents[2].Role)
	assert.Equal(t, genai.FunctionResponse{Name: "resolve_date", Response: map[string]any{"result": "2026-10-23"}}, contents[2].Parts[0])
	assert.Equal(t, genai.FunctionResponse{Name: "search_flights", Response: map[string]any{"error": "bad date"}}, contents[3].Parts[0])
}

func TestFromResponse(t *testing.T) {
	ctx := context.Background()

	_, err := FromResponse(ctx, &genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates")

	text, err := FromResponse(ctx, &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text("Hello "), genai.Text("there")}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, agents.DirectAnswer{Text: "Hello there"}, text)

	call, err := FromResponse(ctx, &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{
			genai.FunctionCall{Name: "search_flights", Args: map[string]any{"departure_id": "LHR"}},
		}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, agents.ToolRequest{Ref: "search_flights", Name: "search_flights", Arguments: map[string]any{"departure_id": "LHR"}}, call)

	batch, err := FromResponse(ctx, &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []genai.Part{
			genai.FunctionCall{Name: "get_weather", Args: map[string]any{"city": "Paris"}},
			genai.FunctionCall{Name: "resolve_date"},
		}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, agents.ToolBatch{Requests: []agents.ToolRequest{
		{Ref: "get_weather", Name: "get_weather", Arguments: map[string]any{"city": "Paris"}},
		{Ref: "resolve_date", Name: "resolve_date", Arguments: map[string]any{}},
	}}, batch)
}
