package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/flights"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	out, err := run(t, "", "validate", "--from", "London", "--to", "nyc", "--date", "2026-10-23", "--today", "2026-10-16")
	require.NoError(t, err)
	assert.Contains(t, out, "departure_id=LHR\n")
	assert.Contains(t, out, "arrival_id=JFK\n")
	assert.Contains(t, out, "outbound_date=2026-10-23\n")
	assert.Contains(t, out, "type=2\n")
	assert.NotContains(t, out, "return_date")
	assert.NotContains(t, out, "api_key")

	_, err = run(t, "", "validate", "--from", "LHR", "--to", "JFK", "--date", "2026-10-01", "--today", "2026-10-16")
	var verr *flights.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, flights.RulePastDate, verr.Violations[0].Rule)
}

const savedResponse = `{
  "best_flights": [
    {"price": 200, "total_duration": 300},
    {"price": 150, "total_duration": 420}
  ],
  "other_flights": [
    {"price": 500, "total_duration": 100},
    {"price": 90}
  ]
}`

func TestRankCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "response.json")
	require.NoError(t, os.WriteFile(path, []byte(savedResponse), 0o644))

	out, err := run(t, "", "rank", path, "--top", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[0], "RANK")
	assert.Regexp(t, `^1\s+0\s+200\s+300\s+0\.7655`, lines[1])
	assert.Regexp(t, `^2\s+1\s+150\s+420\s+0\.9969`, lines[2])
	assert.Contains(t, out, "3 of 4 results were rankable")

	out, err = run(t, savedResponse, "rank", "-", "--json", "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"Considered": 3`)

	_, err = run(t, `{"search_metadata":{}}`, "rank", "-")
	assert.ErrorContains(t, err, "no best_flights")
}

func TestRetrieveCmd(t *testing.T) {
	out, err := run(t, "", "retrieve", "Tokyo", "--dir", filepath.Join("..", "data"), "--max", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "flights:\n")
	assert.Contains(t, out, "hotels:\n")
	assert.Contains(t, out, "vacations:\n")
	assert.Contains(t, out, "Park Hyatt Tokyo")

	out, err = run(t, "", "retrieve", "anything", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "(none)"))
}

func TestAskCmdRejectsBadContext(t *testing.T) {
	_, err := run(t, "", "ask", "hi", "--context", "[1,2]")
	assert.ErrorContains(t, err, "--context must be a JSON object")
}
