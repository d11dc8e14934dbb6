package agents

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/plugins/core"
	"github.com/va6996/travelassist/tools"
)

func TestGenkitModel_Complete(t *testing.T) {
	ctx := context.Background()
	gk := genkit.Init(ctx)
	registry := tools.NewRegistry()
	core.NewDateTool(gk, registry)

	var requests []*ai.ModelRequest
	fake := genkit.DefineModel(gk, "test/fake", &ai.ModelOptions{
		Supports: &ai.ModelSupports{Multiturn: true, SystemRole: true, Tools: true},
	}, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		requests = append(requests, req)
		last := req.Messages[len(req.Messages)-1]
		if last.Role == ai.RoleTool {
			return &ai.ModelResponse{
				Message:      ai.NewModelTextMessage("Next Friday is 2026-10-23."),
				FinishReason: ai.FinishReasonStop,
			}, nil
		}
		return &ai.ModelResponse{
			Message: ai.NewMessage(ai.RoleModel, nil, ai.NewToolRequestPart(&ai.ToolRequest{
				Ref:   "call-1",
				Name:  core.DateToolName,
				Input: map[string]any{"expression": "new Date(now + 7*86400000)"},
			})),
			FinishReason: ai.FinishReasonStop,
		}, nil
	})

	m := NewGenkitModel(gk, fake, registry, 0.2, 256)

	first, err := m.Complete(ctx, "be brief", []Message{{Role: RoleUser, Content: "when is next friday?"}})
	require.NoError(t, err)
	req, ok := first.(ToolRequest)
	require.True(t, ok, "got %T", first)
	assert.Equal(t, core.DateToolName, req.Name)
	assert.Equal(t, "call-1", req.Ref)
	assert.Equal(t, "new Date(now + 7*86400000)", req.Arguments["expression"])

	require.Len(t, requests, 1)
	assert.Len(t, requests[0].Tools, 1)
	assert.Equal(t, ai.RoleSystem, requests[0].Messages[0].Role)
	assert.Equal(t, "be brief", requests[0].Messages[0].Text())

	second, err := m.Complete(ctx, "be brief", []Message{
		{Role: RoleUser, Content: "when is next friday?"},
		{Role: RoleModel, ToolRequest: &req},
		{Role: RoleTool, ToolResult: &ToolResult{Ref: "call-1", Name: core.DateToolName, Output: "2026-10-23"}},
	})
	require.NoError(t, err)
	assert.Equal(t, DirectAnswer{Text: "Next Friday is 2026-10-23."}, second)

	require.Len(t, requests, 2)
	msgs := requests[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, ai.RoleModel, msgs[2].Role)
	assert.True(t, msgs[2].Content[0].IsToolRequest())
	assert.Equal(t, ai.RoleTool, msgs[3].Role)
	assert.Equal(t, "2026-10-23", msgs[3].Content[0].ToolResponse.Output)
}

func TestGenkitModel_CompleteBatch(t *testing.T) {
	ctx := context.Background()
	gk := genkit.Init(ctx)
	registry := tools.NewRegistry()
	core.NewDateTool(gk, registry)

	fake := genkit.DefineModel(gk, "test/batch", &ai.ModelOptions{
		Supports: &ai.ModelSupports{Multiturn: true, SystemRole: true, Tools: true},
	}, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		return &ai.ModelResponse{
			Message: ai.NewMessage(ai.RoleModel, nil,
				ai.NewToolRequestPart(&ai.ToolRequest{Ref: "a", Name: core.DateToolName, Input: map[string]any{"expression": "now"}}),
				ai.NewToolRequestPart(&ai.ToolRequest{Ref: "b", Name: core.DateToolName, Input: `{"expression":"now + 1"}`}),
			),
			FinishReason: ai.FinishReasonStop,
		}, nil
	})

	got, err := NewGenkitModel(gk, fake, registry, 0, 0).
		Complete(ctx, "sys", []Message{{Role: RoleUser, Content: "two dates"}})
	require.NoError(t, err)
	batch, ok := got.(ToolBatch)
	require.True(t, ok, "got %T", got)
	require.Len(t, batch.Requests, 2)
	assert.Equal(t, "a", batch.Requests[0].Ref)
	assert.Equal(t, "b", batch.Requests[1].Ref)
	assert.Equal(t, "now + 1", batch.Requests[1].Arguments["expression"])
}

func TestToArguments(t *testing.T) {
	args, err := toArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = toArguments(`{"city":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, "Paris", args["city"])

	args, err = toArguments(struct {
		City string `json:"city"`
	}{City: "Rome"})
	require.NoError(t, err)
	assert.Equal(t, "Rome", args["city"])

	_, err = toArguments("not json")
	assert.Error(t, err)
}
