package agents

import (
	"context"

	"github.com/va6996/travelassist/corpus"
)

// Role identifies who produced a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Message is one entry of the transcript sent to the model. A model
// message carries either Content or a ToolRequest; a tool message carries
// a ToolResult.
type Message struct {
	Role        Role
	Content     string
	ToolRequest *ToolRequest
	ToolResult  *ToolResult
}

// ToolResult answers a ToolRequest with the same Ref.
type ToolResult struct {
	Ref    string
	Name   string
	Output any
}

// Completion is what the model returns for one call: a DirectAnswer, a
// ToolRequest, or a ToolBatch when several tools are requested at once.
type Completion interface {
	completion()
}

// DirectAnswer is final text for the user.
type DirectAnswer struct {
	Text string
}

// ToolRequest asks the orchestrator to run a named tool.
type ToolRequest struct {
	Ref       string
	Name      string
	Arguments map[string]any
}

// ToolBatch holds tool requests the model issued in a single reply. They
// are run in order within one tool round.
type ToolBatch struct {
	Requests []ToolRequest
}

func (DirectAnswer) completion() {}
func (ToolRequest) completion() {}
func (ToolBatch) completion() {}

// ToolCompletion wraps reqs as a ToolRequest, or a ToolBatch when there is
// more than one.
func ToolCompletion(reqs []ToolRequest) Completion {
	if len(reqs) == 1 {
		return reqs[0]
	}
	return ToolBatch{Requests: reqs}
}

// Model is the language-model capability.
type Model interface {
	Complete(ctx context.Context, system string, messages []Message) (Completion, error)
}

// ToolRunner executes a tool by name. *tools.Registry implements it.
type ToolRunner interface {
	ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// Retriever supplies corpus snippets for a user message. *rag.Retriever
// implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, maxResults int) map[corpus.Category][]string
}
