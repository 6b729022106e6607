package transit

import "github.com/hikoneportal/transit-api/models"

// DefaultResultLimit bounds shaped responses when the caller passes no limit
const DefaultResultLimit = 5

// ShapeResults truncates results to limit, preserving relative order.
// Providers return routes in departure-time order, so truncation keeps the
// earliest departures. Results are never reordered or deduplicated across
// providers: there is no common key to dedup on, and that limitation is
// part of the contract.
func ShapeResults(results []models.CanonicalRouteResult, limit int) []models.CanonicalRouteResult {
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	if len(results) <= limit {
		return results
	}
	return results[:limit]
}
