package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCollection(t *testing.T, dir string, c Category, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(c)+".json"), []byte(body), 0o600))
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeCollection(t, dir, CategoryFlights, `{"flights": [
		{"flightNumber": "BA117", "departure": {"city": "London", "date": "2026-11-06"},
		 "arrival": {"city": "New York"}, "status": "Scheduled", "price": {"economy": 540.5}}
	]}`)
	writeCollection(t, dir, CategoryHotels, `{"hotels": [{"name": "Plain", "address": {}}]}`)
	writeCollection(t, dir, CategoryVacations, `{"vacations": [
		{"name": "Kyoto", "destination": {"city": "Kyoto"}, "duration": {"days": 5, "nights": 4},
		 "highlights": ["Temples", "Tea", "Bamboo"]}
	]}`)

	store := NewStore(dir)

	t.Run("Flights", func(t *testing.T) {
		items, err := store.Load(ctx, CategoryFlights)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, CategoryFlights, items[0].Category())
		assert.Equal(t, "Flight BA117 from London to New York on 2026-11-06, Status: Scheduled, Price (economy): 540.5", items[0].Summary())
		assert.Contains(t, items[0].Text(), `"flightNumber":"BA117"`)
	})

	t.Run("MissingFieldsRenderEmpty", func(t *testing.T) {
		items, err := store.Load(ctx, CategoryHotels)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Hotel Plain in ,  stars, Price: - ", items[0].Summary())
	})

	t.Run("VacationHighlightsCapped", func(t *testing.T) {
		items, err := store.Load(ctx, CategoryVacations)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Vacation Kyoto in Kyoto, 5 days / 4 nights, Highlights: Temples, Tea", items[0].Summary())
	})

	t.Run("ReReadsFile", func(t *testing.T) {
		writeCollection(t, dir, CategoryHotels, `{"hotels": [{"name": "A"}, {"name": "B"}]}`)
		items, err := store.Load(ctx, CategoryHotels)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}

func TestStoreLoadUnavailable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(dir)

	_, err := store.Load(ctx, CategoryFlights)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	writeCollection(t, dir, CategoryHotels, `{"hotels": [`)
	_, err = store.Load(ctx, CategoryHotels)
	assert.ErrorIs(t, err, ErrDataUnavailable)

	_, err = store.Load(ctx, Category("cruises"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDataUnavailable)
}

func TestFieldText(t *testing.T) {
	assert.Equal(t, "", fieldText(nil))
	assert.Equal(t, "4.5", fieldText(4.5))
	assert.Equal(t, "true", fieldText(true))
	assert.Equal(t, "x", fieldText("x"))
}
