package imagesearch

import (
	"context"
	"math"
	"strings"
)

// Query describes one image search
type Query struct {
	// Terms is the full search string, entity name plus suffix
	Terms string
	// Limit is the maximum number of results wanted
	Limit int
}

// Result is one candidate image
type Result struct {
	URL        string
	MIME       string
	Width      int
	Height     int
	Title      string
	ContextURL string
}

// Provider finds candidate images for a query. Results are ordered by
// relevance and already filtered.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// BuildQuery joins an entity name and the configured suffix
func BuildQuery(name, suffix string) string {
	return strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(suffix))
}

// Filter rejects candidates that are too small or not square enough
type Filter struct {
	MinWidth        int
	MinHeight       int
	AspectTolerance float64
}

// Accept reports whether r passes the filter. Results without known
// dimensions are rejected.
func (f Filter) Accept(r Result) bool {
	if r.URL == "" || r.Width <= 0 || r.Height <= 0 {
		return false
	}
	if r.Width < f.MinWidth || r.Height < f.MinHeight {
		return false
	}
	if f.AspectTolerance > 0 {
		ratio := float64(r.Width) / float64(r.Height)
		if math.Abs(ratio-1) > f.AspectTolerance {
			return false
		}
	}
	return true
}

// Apply keeps the accepted results, in order, up to limit
func (f Filter) Apply(results []Result, limit int) []Result {
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if !f.Accept(r) {
			continue
		}
		kept = append(kept, r)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return kept
}
