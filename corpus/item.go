package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Category names one corpus collection. The value doubles as the file stem
// and as the top-level key inside the file.
type Category string

const (
	CategoryFlights   Category = "flights"
	CategoryHotels    Category = "hotels"
	CategoryVacations Category = "vacations"
)

// Categories returns every collection in retrieval order.
func Categories() []Category {
	return []Category{CategoryFlights, CategoryHotels, CategoryVacations}
}

// Item is a single record loaded from the corpus.
type Item interface {
	Category() Category
	// Summary renders the record as one human-readable line. Missing
	// fields render as empty strings.
	Summary() string
	// Text is the flattened form used for keyword matching.
	Text() string
}

type record struct {
	fields map[string]any
	text   string
}

func newRecord(fields map[string]any) record {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return record{fields: fields, text: fmt.Sprint(fields)}
	}
	return record{fields: fields, text: strings.TrimSpace(buf.String())}
}

func (r record) Text() string { return r.text }

// get walks nested objects; any missing hop yields nil.
func (r record) get(path ...string) any {
	var cur any = r.fields
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func (r record) str(path ...string) string {
	return fieldText(r.get(path...))
}

func fieldText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Flight is a scheduled flight record.
type Flight struct{ record }

func (Flight) Category() Category { return CategoryFlights }

func (f Flight) FlightNumber() string { return f.str("flightNumber") }
func (f Flight) OriginCity() string   { return f.str("departure", "city") }
func (f Flight) DestCity() string     { return f.str("arrival", "city") }

func (f Flight) Summary() string {
	return fmt.Sprintf("Flight %s from %s to %s on %s, Status: %s, Price (economy): %s",
		f.FlightNumber(), f.OriginCity(), f.DestCity(), f.str("departure", "date"),
		f.str("status"), f.str("price", "economy"))
}

// Hotel is a lodging record.
type Hotel struct{ record }

func (Hotel) Category() Category { return CategoryHotels }

func (h Hotel) Name() string { return h.str("name") }

func (h Hotel) Summary() string {
	return fmt.Sprintf("Hotel %s in %s, %s stars, Price: %s-%s %s",
		h.Name(), h.str("address", "city"), h.str("starRating"),
		h.str("priceRange", "low"), h.str("priceRange", "high"), h.str("priceRange", "currency"))
}

// VacationPackage is a bundled trip record.
type VacationPackage struct{ record }

func (VacationPackage) Category() Category { return CategoryVacations }

func (v VacationPackage) Name() string { return v.str("name") }

// Highlights returns at most n highlight strings.
func (v VacationPackage) Highlights(n int) []string {
	raw, _ := v.get("highlights").([]any)
	out := make([]string, 0, n)
	for _, h := range raw {
		if len(out) == n {
			break
		}
		out = append(out, fieldText(h))
	}
	return out
}

func (v VacationPackage) Summary() string {
	return fmt.Sprintf("Vacation %s in %s, %s days / %s nights, Highlights: %s",
		v.Name(), v.str("destination", "city"), v.str("duration", "days"),
		v.str("duration", "nights"), strings.Join(v.Highlights(2), ", "))
}

func newItem(c Category, fields map[string]any) Item {
	r := newRecord(fields)
	switch c {
	case CategoryFlights:
		return Flight{r}
	case CategoryHotels:
		return Hotel{r}
	default:
		return VacationPackage{r}
	}
}
