package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/tools"
)

// DateToolName is the name the model uses to resolve relative dates.
const DateToolName = "resolve_date"

// DateInput defines the input for the date tool
type DateInput struct {
	Expression string `json:"expression" description:"JavaScript expression to calculate a date. Variable 'now' is available as current timestamp in milliseconds."`
}

// DefaultEvalTimeout bounds a single expression evaluation.
const DefaultEvalTimeout = 2 * time.Second

// DateTool turns relative date phrases into concrete YYYY-MM-DD dates by
// evaluating a JavaScript expression.
type DateTool struct {
	Now func() time.Time

	// EvalTimeout caps evaluation time; zero means DefaultEvalTimeout.
	EvalTimeout time.Duration
}

// NewDateTool creates a new DateTool and registers it
func NewDateTool(gk *genkit.Genkit, registry *tools.Registry) *DateTool {
	t := &DateTool{
		Now:         time.Now,
		EvalTimeout: DefaultEvalTimeout,
	}

	if gk == nil || registry == nil {
		return t
	}

	registry.Register(genkit.DefineTool[*DateInput, string](
		gk,
		DateToolName,
		t.Description(),
		func(ctx *ai.ToolContext, input *DateInput) (string, error) {
			return t.Execute(ctx, input)
		},
	), func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		expression, ok := args["expression"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: missing expression", tools.ErrInvalidArguments)
		}
		return t.Execute(ctx, &DateInput{Expression: expression})
	})

	return t
}

func (t *DateTool) Description() string {
	return `Executes a JavaScript expression to calculate a date and returns it as YYYY-MM-DD. Variable 'now' holds the current timestamp (milliseconds).
Return a Date object or ISO string. The last expression is the return value.
Examples:
- Next Friday: "var d = new Date(now); d.setDate(d.getDate() + (12 - d.getDay()) % 7); if(d.getDay() !== 5 || d <= now) d.setDate(d.getDate() + 7); d"
- Tomorrow: "new Date(now + 86400000)"`
}

// Execute evaluates input.Expression and formats the resulting date in the
// location of Now.
func (t *DateTool) Execute(ctx context.Context, input *DateInput) (string, error) {
	if input == nil || strings.TrimSpace(input.Expression) == "" {
		return "", fmt.Errorf("%w: expression is required", tools.ErrInvalidArguments)
	}
	log.Debugf(ctx, "resolve_date executing expression: %s", input.Expression)

	now := t.Now()
	vm := goja.New()
	if err := vm.Set("now", now.UnixMilli()); err != nil {
		return "", fmt.Errorf("failed to set 'now': %w", err)
	}

	timeout := t.EvalTimeout
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(evalCtx, func() {
		vm.Interrupt(evalCtx.Err())
	})
	defer stop()

	val, err := vm.RunString(input.Expression)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if ctx.Err() != nil {
				return "", fmt.Errorf("resolve_date interrupted: %w", ctx.Err())
			}
			log.Warnf(ctx, "resolve_date expression exceeded %s", timeout)
			return "", fmt.Errorf("%w: expression did not finish within %s", tools.ErrInvalidArguments, timeout)
		}
		log.Warnf(ctx, "resolve_date RunString error: %v", err)
		return "", fmt.Errorf("%w: js execution failed: %v", tools.ErrInvalidArguments, err)
	}

	exported := val.Export()
	if exported == nil {
		return "", fmt.Errorf("%w: result is null or undefined", tools.ErrInvalidArguments)
	}

	var resolved time.Time
	switch v := exported.(type) {
	case time.Time:
		resolved = v
	case string:
		parsed, err := parseDateString(v)
		if err != nil {
			return "", err
		}
		resolved = parsed
	default:
		return "", fmt.Errorf("%w: result is not a valid Date object or ISO string (got %T)", tools.ErrInvalidArguments, exported)
	}

	out := resolved.In(now.Location()).Format(flights.DateLayout)
	log.Debugf(ctx, "resolve_date result: %s", out)
	return out, nil
}

func parseDateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(flights.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: result %q is not a valid ISO date", tools.ErrInvalidArguments, s)
}
