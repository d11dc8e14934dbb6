// Package rag assembles short, human-readable context snippets from the
// local corpus for inclusion in the model prompt.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/va6996/travelassist/corpus"
	"github.com/va6996/travelassist/log"
)

// Loader is the subset of corpus.Store the retriever needs.
type Loader interface {
	Load(ctx context.Context, c corpus.Category) ([]corpus.Item, error)
}

// Retriever runs keyword lookups over every corpus category.
type Retriever struct {
	store Loader
}

// NewRetriever creates a retriever over store.
func NewRetriever(store Loader) *Retriever {
	return &Retriever{store: store}
}

// Retrieve returns up to maxResults summaries per category. Items whose
// flattened text contains query (case-insensitive) are returned in
// collection order; when nothing matches, the first maxResults items are
// returned instead. A category that cannot be loaded yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxResults int) map[corpus.Category][]string {
	out := make(map[corpus.Category][]string, len(corpus.Categories()))
	for _, c := range corpus.Categories() {
		items, err := r.store.Load(ctx, c)
		if err != nil {
			log.Warnf(ctx, "Failed to retrieve context for %s: %v", c, err)
			out[c] = []string{}
			continue
		}

		picked := Search(items, query, maxResults)
		summaries := make([]string, 0, len(picked))
		for _, item := range picked {
			summaries = append(summaries, item.Summary())
		}
		out[c] = summaries
	}
	return out
}

// Search applies the match-or-fallback policy to one collection.
func Search(items []corpus.Item, query string, maxResults int) []corpus.Item {
	if maxResults <= 0 || len(items) == 0 {
		return nil
	}

	needle := strings.ToLower(query)
	var matches []corpus.Item
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Text()), needle) {
			matches = append(matches, item)
			if len(matches) == maxResults {
				break
			}
		}
	}
	if len(matches) > 0 {
		return matches
	}

	if len(items) > maxResults {
		return items[:maxResults]
	}
	return items
}

// Merge folds category summaries into a copy of base, one key per
// non-empty category with summaries joined by newlines.
func Merge(base map[string]any, retrieved map[corpus.Category][]string) map[string]any {
	merged := make(map[string]any, len(base)+len(retrieved))
	for k, v := range base {
		merged[k] = v
	}
	for c, summaries := range retrieved {
		if len(summaries) == 0 {
			continue
		}
		merged[string(c)] = strings.Join(summaries, "\n")
	}
	return merged
}

// FormatContext renders a context map as sorted "key: value" lines.
func FormatContext(ctx map[string]any) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s: %s", k, valueText(ctx[k]))
	}
	return sb.String()
}

func valueText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "\n")
	case fmt.Stringer:
		return val.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
