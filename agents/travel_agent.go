package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/plugins/serpapi"
	"github.com/va6996/travelassist/rag"
	"github.com/va6996/travelassist/tools"
)

// ApologyMessage is the only text a user sees when a request fails.
const ApologyMessage = "I'm sorry, I encountered an error while processing your request. Please try again later."

// Context keys the agent reads or writes.
const (
	ContextConversation = "conversation"
	ContextCurrentDate  = "current_date"
	ContextLocation     = "location"
)

const rankingNote = "Top flights ranked by the best combination of price and total duration (fastest + cheapest). " +
	"Each dimension is normalized across this search; lower optimality_score is better."

const noRankableNote = "The search returned flights, but none had both a price and a total duration, so they could not be ranked."

const systemPrompt = `You are a helpful travel assistant. You can help users find flights, hotels, and vacation packages. Be friendly and provide accurate information.

When the user wants real flight options, call search_flights. Convert relative dates ("next friday", "in two weeks") to YYYY-MM-DD with resolve_date first, using the current date below. Only pass return_date for round trips.
Use get_weather for weather questions and get_public_holidays to check the destination's holidays during the travel dates.
If a tool result contains an "error", explain the problem to the user and ask for the missing or corrected details instead of retrying blindly.
When you answer with flight search results, reply with the raw JSON object returned by search_flights so it can be ranked.`

// State is a step of the per-request pipeline.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateContextAssembled  State = "CONTEXT_ASSEMBLED"
	StateModelInvoked      State = "MODEL_INVOKED"
	StateToolRequested     State = "TOOL_REQUESTED"
	StateToolExecuted      State = "TOOL_EXECUTED"
	StateModelResumed      State = "MODEL_RESUMED"
	StateResultPostprocess State = "RESULT_POSTPROCESSED"
	StateResponded         State = "RESPONDED"
)

// Options tunes the agent. Zero values fall back to the defaults noted.
type Options struct {
	WindowSize        int           // default 3
	TopK              int           // default 3
	MaxResults        int           // corpus snippets per category, default 2
	MaxToolRounds     int           // default 4
	MaxSearchAttempts int           // default 2
	ResponseTimeout   time.Duration // 0 means no deadline beyond ctx
	Now               func() time.Time
}

func (o *Options) applyDefaults() {
	if o.WindowSize <= 0 {
		o.WindowSize = 3
	}
	if o.TopK <= 0 {
		o.TopK = 3
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 2
	}
	if o.MaxToolRounds <= 0 {
		o.MaxToolRounds = 4
	}
	if o.MaxSearchAttempts <= 0 {
		o.MaxSearchAttempts = 2
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Response string         `json:"response"`
	Context  map[string]any `json:"context"`
}

// TravelAgent is the main orchestrator. It is built once at startup and
// holds no per-request state, so one instance serves concurrent requests.
type TravelAgent struct {
	model     Model
	retriever Retriever
	tools     ToolRunner
	opts      Options
}

// NewTravelAgent creates a new TravelAgent
func NewTravelAgent(model Model, retriever Retriever, runner ToolRunner, opts Options) *TravelAgent {
	opts.applyDefaults()
	return &TravelAgent{
		model:     model,
		retriever: retriever,
		tools:     runner,
		opts:      opts,
	}
}

type turn struct {
	state          State
	searchAttempts int
}

func (t *turn) enter(ctx context.Context, next State) {
	log.Debugf(ctx, "Agent state %s -> %s", t.state, next)
	t.state = next
}

// ProcessMessage answers one user message. It never returns an error:
// failures after the context is assembled are logged and replaced by
// ApologyMessage. The returned context holds the caller's keys plus the
// updated conversation window and current date.
func (ta *TravelAgent) ProcessMessage(ctx context.Context, message string, reqCtx map[string]any) (reply Reply) {
	t := &turn{state: StateReceived}
	log.Infof(ctx, "Processing chat message (%d chars)", len(message))

	if ta.opts.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ta.opts.ResponseTimeout)
		defer cancel()
	}

	today := ta.opts.Now().Format(flights.DateLayout)
	replyCtx := make(map[string]any, len(reqCtx)+2)
	for k, v := range reqCtx {
		replyCtx[k] = v
	}
	replyCtx[ContextConversation] = appendWindow(reqCtx[ContextConversation], message, ta.opts.WindowSize)
	replyCtx[ContextCurrentDate] = today

	defer func() {
		if r := recover(); r != nil {
			log.Errorf(ctx, "Panic while processing message in state %s: %v", t.state, r)
			reply = Reply{Response: ApologyMessage, Context: replyCtx}
		}
	}()

	retrieved := ta.retriever.Retrieve(ctx, message, ta.opts.MaxResults)
	promptCtx := rag.Merge(replyCtx, retrieved)
	t.enter(ctx, StateContextAssembled)

	answer, err := ta.converse(ctx, t, message, promptCtx, today)
	if err != nil {
		log.Errorf(ctx, "Error in process_message (state %s): %v", t.state, err)
		return Reply{Response: ApologyMessage, Context: replyCtx}
	}

	t.enter(ctx, StateResultPostprocess)
	answer = postProcess(ctx, answer, today, ta.opts.TopK)

	t.enter(ctx, StateResponded)
	return Reply{Response: strings.TrimSpace(answer), Context: replyCtx}
}

func (ta *TravelAgent) converse(ctx context.Context, t *turn, message string, promptCtx map[string]any, today string) (string, error) {
	system := buildSystemPrompt(promptCtx, today)
	msgs := []Message{{Role: RoleUser, Content: message}}

	t.enter(ctx, StateModelInvoked)
	for round := 0; round <= ta.opts.MaxToolRounds; round++ {
		completion, err := ta.model.Complete(ctx, system, msgs)
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}

		var reqs []ToolRequest
		switch c := completion.(type) {
		case DirectAnswer:
			return c.Text, nil
		case ToolRequest:
			reqs = []ToolRequest{c}
		case ToolBatch:
			reqs = c.Requests
		default:
			return "", fmt.Errorf("unexpected completion type %T", completion)
		}
		if len(reqs) == 0 {
			return "", fmt.Errorf("model returned an empty tool batch")
		}
		if round == ta.opts.MaxToolRounds {
			return "", fmt.Errorf("model requested tool %q after %d tool rounds", reqs[0].Name, round)
		}

		t.enter(ctx, StateToolRequested)
		for _, req := range reqs {
			output, err := ta.runTool(ctx, t, req)
			if err != nil {
				return "", err
			}
			msgs = append(msgs,
				Message{Role: RoleModel, ToolRequest: &req},
				Message{Role: RoleTool, ToolResult: &ToolResult{Ref: req.Ref, Name: req.Name, Output: output}},
			)
		}
		t.enter(ctx, StateToolExecuted)
		t.enter(ctx, StateModelResumed)
	}
	return "", fmt.Errorf("no answer after %d tool rounds", ta.opts.MaxToolRounds)
}

// runTool executes req and returns what the model should see. Errors the
// user can fix come back as an output; anything else aborts the turn.
func (ta *TravelAgent) runTool(ctx context.Context, t *turn, req ToolRequest) (any, error) {
	argsJSON, _ := json.Marshal(req.Arguments)
	log.Infof(ctx, "Model requested tool %s with %s", req.Name, argsJSON)

	if req.Name == serpapi.ToolName {
		t.searchAttempts++
		if t.searchAttempts > ta.opts.MaxSearchAttempts {
			log.Warnf(ctx, "Refusing search attempt %d this turn", t.searchAttempts)
			return map[string]any{
				"error": "The flight search was already attempted for this message. Ask the user to confirm or correct the trip details.",
			}, nil
		}
	}

	output, err := ta.tools.ExecuteTool(ctx, req.Name, req.Arguments)
	if err == nil {
		return output, nil
	}

	var verr *flights.ValidationError
	switch {
	case errors.As(err, &verr):
		return map[string]any{"error": verr.Error(), "violations": verr.Violations}, nil
	case errors.Is(err, tools.ErrInvalidArguments), errors.Is(err, tools.ErrUnknownTool):
		log.Warnf(ctx, "Tool %s rejected its arguments: %v", req.Name, err)
		return map[string]any{"error": err.Error()}, nil
	default:
		return nil, fmt.Errorf("tool %s failed: %w", req.Name, err)
	}
}

func buildSystemPrompt(promptCtx map[string]any, today string) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	fmt.Fprintf(&sb, "\n\nCurrent date: %s", today)
	if loc, ok := promptCtx[ContextLocation]; ok && loc != nil && fmt.Sprint(loc) != "" {
		fmt.Fprintf(&sb, "\nUser location: %v", loc)
	}
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(rag.FormatContext(promptCtx))
	return sb.String()
}

// appendWindow adds message to the prior conversation and keeps the last
// size entries. Anything other than a list of turns starts a new window.
func appendWindow(prior any, message string, size int) []any {
	var turns []any
	switch v := prior.(type) {
	case []any:
		turns = append(turns, v...)
	case []string:
		for _, s := range v {
			turns = append(turns, s)
		}
	}
	turns = append(turns, message)
	if len(turns) > size {
		turns = turns[len(turns)-size:]
	}
	return turns
}
