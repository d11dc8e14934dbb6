// Package corpus gives read-only access to the local travel data files
// (flights.json, hotels.json, vacations.json).
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/va6996/travelassist/log"
)

// ErrDataUnavailable wraps every failure to read or decode a collection.
var ErrDataUnavailable = errors.New("corpus data unavailable")

// Store reads collections from a directory. Every Load re-reads the file,
// so edits on disk are visible on the next call.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the backing file for a category.
func (s *Store) Path(c Category) string {
	return filepath.Join(s.dir, string(c)+".json")
}

// Load reads one collection. The file must be a single object whose key
// equals the category name and whose value is an array of records.
func (s *Store) Load(ctx context.Context, c Category) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch c {
	case CategoryFlights, CategoryHotels, CategoryVacations:
	default:
		return nil, fmt.Errorf("unknown category %q", c)
	}

	path := s.Path(c)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string][]map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrDataUnavailable, path, err)
	}

	records := doc[string(c)]
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, newItem(c, rec))
	}
	log.Debugf(ctx, "Loaded %d %s from %s", len(items), c, path)
	return items, nil
}
