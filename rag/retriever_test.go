package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/va6996/travelassist/corpus"
)

func newTestStore(t *testing.T, hotels string) *corpus.Store {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"flights.json": `{"flights": [
			{"flightNumber": "BA117", "departure": {"city": "London", "date": "2026-11-06"}, "arrival": {"city": "New York"}, "status": "Scheduled", "price": {"economy": 540}},
			{"flightNumber": "AF22", "departure": {"city": "Paris", "date": "2026-11-08"}, "arrival": {"city": "New York"}, "status": "Scheduled", "price": {"economy": 610}},
			{"flightNumber": "JL61", "departure": {"city": "Tokyo", "date": "2026-11-12"}, "arrival": {"city": "Los Angeles"}, "status": "Delayed", "price": {"economy": 880}}
		]}`,
		"hotels.json": hotels,
		"vacations.json": `{"vacations": [
			{"name": "Kyoto Temples", "destination": {"city": "Kyoto"}, "duration": {"days": 5, "nights": 4}, "highlights": ["Fushimi Inari"]}
		]}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return corpus.NewStore(dir)
}

const validHotels = `{"hotels": [
	{"name": "The Savoy", "address": {"city": "London"}, "starRating": 5, "priceRange": {"low": 650, "high": 1400, "currency": "GBP"}},
	{"name": "Le Marais", "address": {"city": "Paris"}, "starRating": 4, "priceRange": {"low": 210, "high": 380, "currency": "EUR"}}
]}`

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	r := NewRetriever(newTestStore(t, validHotels))

	t.Run("MatchesCaseInsensitive", func(t *testing.T) {
		got := r.Retrieve(ctx, "new york", 5)
		require.Len(t, got[corpus.CategoryFlights], 2)
		assert.True(t, strings.HasPrefix(got[corpus.CategoryFlights][0], "Flight BA117"))
		assert.True(t, strings.HasPrefix(got[corpus.CategoryFlights][1], "Flight AF22"))
	})

	t.Run("BoundedByMaxResults", func(t *testing.T) {
		got := r.Retrieve(ctx, "scheduled", 1)
		assert.Len(t, got[corpus.CategoryFlights], 1)
	})

	t.Run("FallbackReturnsFirstItems", func(t *testing.T) {
		got := r.Retrieve(ctx, "zanzibar", 2)
		assert.Equal(t, []string{
			"Flight BA117 from London to New York on 2026-11-06, Status: Scheduled, Price (economy): 540",
			"Flight AF22 from Paris to New York on 2026-11-08, Status: Scheduled, Price (economy): 610",
		}, got[corpus.CategoryFlights])
		assert.Len(t, got[corpus.CategoryHotels], 2)
		assert.Len(t, got[corpus.CategoryVacations], 1)
	})

	t.Run("ZeroMaxResults", func(t *testing.T) {
		got := r.Retrieve(ctx, "london", 0)
		assert.Empty(t, got[corpus.CategoryFlights])
	})
}

func TestRetrieveMalformedCategory(t *testing.T) {
	ctx := context.Background()
	r := NewRetriever(newTestStore(t, `{"hotels": [ {"name": `))

	got := r.Retrieve(ctx, "london", 2)
	assert.NotNil(t, got[corpus.CategoryHotels])
	assert.Empty(t, got[corpus.CategoryHotels])
	assert.Len(t, got[corpus.CategoryFlights], 1)
	assert.Len(t, got[corpus.CategoryVacations], 1)
}

func TestSearchMatchedItemsContainQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, validHotels)
	items, err := store.Load(ctx, corpus.CategoryFlights)
	require.NoError(t, err)

	for _, q := range []string{"LONDON", "york", "Delayed", "880"} {
		for _, item := range Search(items, q, 10) {
			assert.Contains(t, strings.ToLower(item.Text()), strings.ToLower(q))
		}
	}
}

func TestMergeAndFormat(t *testing.T) {
	merged := Merge(
		map[string]any{"location": "Berlin", "flights": "stale"},
		map[corpus.Category][]string{
			corpus.CategoryFlights: {"a", "b"},
			corpus.CategoryHotels:  {},
		},
	)
	assert.Equal(t, "a\nb", merged["flights"])
	assert.NotContains(t, merged, "hotels")

	out := FormatContext(map[string]any{
		"location":     "Berlin",
		"conversation": []string{"hi", "there"},
		"party":        map[string]any{"adults": 2},
	})
	assert.Equal(t, "conversation: hi\nthere\nlocation: Berlin\nparty: {\"adults\":2}", out)
}
