package core

import (
	"context"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/tools"
)

func TestDateTool_Execute(t *testing.T) {
	registry := tools.NewRegistry()
	gk := genkit.Init(context.Background())

	dt := NewDateTool(gk, registry)
	dt.Now = func() time.Time {
		// Friday 2026-10-16, noon UTC
		return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name      string
		code      string
		want      string
		expectErr bool
	}{
		{
			name: "Valid Date Object",
			code: "new Date('2026-11-02T12:00:00Z')",
			want: "2026-11-02",
		},
		{
			name: "Valid ISO String",
			code: "'2026-11-02T10:00:00Z'",
			want: "2026-11-02",
		},
		{
			name: "Date Only String",
			code: "'2026-12-24'",
			want: "2026-12-24",
		},
		{
			name: "Tomorrow",
			code: "new Date(now + 86400000)",
			want: "2026-10-17",
		},
		{
			name: "Next Friday",
			code: "var d = new Date(now); d.setDate(d.getDate() + (12 - d.getDay()) % 7); if(d.getDay() !== 5 || d <= now) d.setDate(d.getDate() + 7); d",
			want: "2026-10-23",
		},
		{
			name:      "Invalid Return Type (Number)",
			code:      "12345",
			expectErr: true,
		},
		{
			name:      "Null Return",
			code:      "null",
			expectErr: true,
		},
		{
			name:      "Undefined Return (no return)",
			code:      "var x = 1;",
			expectErr: true,
		},
		{
			name:      "Syntax Error",
			code:      "new Date(",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := dt.Execute(context.Background(), &DateInput{Expression: tt.code})
			if tt.expectErr {
				assert.ErrorIs(t, err, tools.ErrInvalidArguments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
		})
	}
}

func TestDateTool_Registered(t *testing.T) {
	registry := tools.NewRegistry()
	NewClient(genkit.Init(context.Background()), registry)

	assert.Equal(t, []string{DateToolName}, registry.Names())

	_, err := registry.ExecuteTool(context.Background(), DateToolName, map[string]interface{}{})
	assert.Error(t, err)

	out, err := registry.ExecuteTool(context.Background(), DateToolName, map[string]interface{}{"expression": "'2027-01-05'"})
	require.NoError(t, err)
	assert.Len(t, out, len("2027-01-05"))
}

func TestDateTool_ExecuteInterrupted(t *testing.T) {
	dt := NewDateTool(nil, nil)
	dt.EvalTimeout = 50 * time.Millisecond

	t.Run("Eval Timeout", func(t *testing.T) {
		start := time.Now()
		_, err := dt.Execute(context.Background(), &DateInput{Expression: "while(true){}"})
		assert.ErrorIs(t, err, tools.ErrInvalidArguments)
		assert.Contains(t, err.Error(), "did not finish")
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("Caller Deadline", func(t *testing.T) {
		dt.EvalTimeout = time.Minute
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := dt.Execute(ctx, &DateInput{Expression: "for(;;){}"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, tools.ErrInvalidArguments)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
