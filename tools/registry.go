// Package tools keeps the set of tools offered to the model together with
// the functions that execute them.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/firebase/genkit/go/ai"
	"github.com/va6996/travelassist/log"
)

var (
	// ErrUnknownTool is returned by ExecuteTool for unregistered names.
	ErrUnknownTool = errors.New("tool not found")
	// ErrInvalidArguments marks failures caused by the arguments a tool was
	// called with rather than by the service behind it.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ToolExecutor is the function signature for executing a tool
type ToolExecutor func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry manages the registration of AI tools
type Registry struct {
	tools     []ai.Tool
	executors map[string]ToolExecutor
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:     make([]ai.Tool, 0),
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool to the registry with its executor. Registering a
// name twice replaces the earlier executor and definition.
func (r *Registry) Register(tool ai.Tool, executor ToolExecutor) {
	name := tool.Definition().Name
	if _, exists := r.executors[name]; exists {
		for i, t := range r.tools {
			if t.Definition().Name == name {
				r.tools = append(r.tools[:i], r.tools[i+1:]...)
				break
			}
		}
	}
	r.tools = append(r.tools, tool)
	r.executors[name] = executor
}

// GetTools returns all registered tools
func (r *Registry) GetTools() []ai.Tool {
	return r.tools
}

// Definitions returns the schema of every registered tool.
func (r *Registry) Definitions() []*ai.ToolDefinition {
	defs := make([]*ai.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteTool runs a registered tool by name
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	executor, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	log.Debugf(ctx, "Executing tool %s", name)
	return executor(ctx, args)
}
