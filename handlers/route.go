package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
	"github.com/hikoneportal/transit-api/transit"
)

// RawRouter runs a place-id route search returning the upstream payload
type RawRouter interface {
	RawTransitRoute(ctx context.Context, startID, goalID string, departureEpoch int64) (json.RawMessage, error)
}

// CoordinateRouter runs a coordinate route search returning trimmed routes
type CoordinateRouter interface {
	RawRoutes(ctx context.Context, start, goal models.Coordinate, departureEpoch int64) ([]transit.NavitimeRoute, error)
}

// RouteSearcher runs the canonical fallback-chain search
type RouteSearcher interface {
	Search(ctx context.Context, q models.RouteQuery) transit.SearchOutcome
}

// RouteCache defines the persisted route-search cache operations
type RouteCache interface {
	Lookup(ctx context.Context, fromKey, toKey, searchDate, searchTime string) (json.RawMessage, error)
	Store(ctx context.Context, entry models.CachedRoute) error
	Ping(ctx context.Context) error
}

// RouteHandler handles HTTP requests for route searches
type RouteHandler struct {
	raw         RawRouter
	coordinates CoordinateRouter
	searcher    RouteSearcher
	cache       RouteCache
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewRouteHandler creates a new handler with the given collaborators
func NewRouteHandler(raw RawRouter, coordinates CoordinateRouter, searcher RouteSearcher, cache RouteCache, cacheTTL time.Duration) *RouteHandler {
	return &RouteHandler{
		raw:         raw,
		coordinates: coordinates,
		searcher:    searcher,
		cache:       cache,
		cacheTTL:    cacheTTL,
		now:         time.Now,
	}
}

// NavitimeRouteResponse is the JSON response structure for GET /transit/navitime-route
type NavitimeRouteResponse struct {
	Routes []transit.NavitimeRoute `json:"routes"`
}

// RouteSearchResponse is the JSON response structure for GET /transit/routes
type RouteSearchResponse struct {
	Outcome        string                        `json:"outcome"` // ok | empty | provider_errors
	Provider       string                        `json:"provider,omitempty"`
	Routes         []models.CanonicalRouteResult `json:"routes"`
	FromCache      bool                          `json:"fromCache,omitempty"`
	ProviderErrors []transit.ProviderFailure     `json:"providerErrors,omitempty"`
}

// RawRoute handles GET /transit/route
// Forwards the upstream transit-routing payload wrapped in 200 regardless
// of its semantic status: zero results must render in the UI, not surface
// as a page error.
func (h *RouteHandler) RawRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startID := r.URL.Query().Get("start_id")
	goalID := r.URL.Query().Get("goal_id")
	startTime := r.URL.Query().Get("start_time")

	if startID == "" || goalID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "start_id and goal_id parameters are required",
		})
		return
	}

	departureEpoch := transit.DepartureEpoch(startTime, h.now())

	payload, err := h.raw.RawTransitRoute(ctx, startID, goalID, departureEpoch)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error: "routing provider credential is not configured",
			})
			return
		}
		log.Printf("raw route: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Failed to retrieve route",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// NavitimeRoute handles GET /transit/navitime-route
// Coordinate-addressed route search, trimmed to at most 3 routes
func (h *RouteHandler) NavitimeRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	start, startErr := parseCoordinate(query.Get("startLat"), query.Get("startLon"))
	goal, goalErr := parseCoordinate(query.Get("goalLat"), query.Get("goalLon"))
	if startErr != nil || goalErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "startLat, startLon, goalLat and goalLon parameters are required",
		})
		return
	}

	departureEpoch := transit.DepartureEpoch(query.Get("start_time"), h.now())

	routes, err := h.coordinates.RawRoutes(ctx, start, goal, departureEpoch)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error: "RAPIDAPI_KEY is not configured",
			})
			return
		}
		var upstream *transit.UpstreamError
		if errors.As(err, &upstream) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(upstream.StatusCode)
			json.NewEncoder(w).Encode(ErrorResponse{Error: upstream.Body})
			return
		}
		log.Printf("navitime route: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Failed to retrieve routes",
		})
		return
	}

	if len(routes) > 3 {
		routes = routes[:3]
	}
	if routes == nil {
		routes = []transit.NavitimeRoute{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(NavitimeRouteResponse{Routes: routes})
}

// SearchRoutes handles GET /transit/routes
// The canonical fallback-chain search. Always answers 200 with an explicit
// outcome field; successful searches are written through to the route
// cache, and the cache serves as a last resort when every provider
// transport-fails.
func (h *RouteHandler) SearchRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from == "" || to == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "from and to parameters are required",
		})
		return
	}

	departure := transit.DepartureTime(departureParam(query), h.now())
	limit := transit.DefaultResultLimit
	if v, err := strconv.Atoi(query.Get("limit")); err == nil && v > 0 {
		limit = v
	}

	q := models.RouteQuery{
		OriginID:      from,
		DestinationID: to,
		Departure:     departure,
		ResultLimit:   limit,
	}

	searchDate := departure.In(transit.JST).Format("20060102")
	searchTime := departure.In(transit.JST).Format("1504")

	outcome := h.searcher.Search(ctx, q)

	switch outcome.State {
	case transit.StateSucceeded:
		shaped := transit.ShapeResults(outcome.Results, q.ResultLimit)
		h.storeInCache(ctx, from, to, searchDate, searchTime, shaped)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(RouteSearchResponse{
			Outcome:  "ok",
			Provider: outcome.Provider,
			Routes:   shaped,
		})

	case transit.StateExhaustedError:
		if cached := h.lookupCache(ctx, from, to, searchDate, searchTime); cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(RouteSearchResponse{
				Outcome:   "ok",
				Provider:  "cache",
				Routes:    cached,
				FromCache: true,
			})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(RouteSearchResponse{
			Outcome:        "provider_errors",
			Routes:         []models.CanonicalRouteResult{},
			ProviderErrors: outcome.Failures,
		})

	default: // StateExhaustedEmpty
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(RouteSearchResponse{
			Outcome: "empty",
			Routes:  []models.CanonicalRouteResult{},
		})
	}
}

func (h *RouteHandler) storeInCache(ctx context.Context, from, to, searchDate, searchTime string, routes []models.CanonicalRouteResult) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(routes)
	if err != nil {
		return
	}
	entry := models.CachedRoute{
		ID:         uuid.New(),
		FromKey:    from,
		ToKey:      to,
		SearchDate: searchDate,
		SearchTime: searchTime,
		Routes:     data,
		CreatedAt:  h.now(),
		ValidUntil: h.now().Add(h.cacheTTL),
	}
	if err := h.cache.Store(ctx, entry); err != nil {
		log.Printf("route cache store failed: %v", err)
	}
}

func (h *RouteHandler) lookupCache(ctx context.Context, from, to, searchDate, searchTime string) []models.CanonicalRouteResult {
	if h.cache == nil {
		return nil
	}
	data, err := h.cache.Lookup(ctx, from, to, searchDate, searchTime)
	if err != nil {
		return nil
	}
	var routes []models.CanonicalRouteResult
	if err := json.Unmarshal(data, &routes); err != nil || len(routes) == 0 {
		return nil
	}
	log.Printf("route search served from cache: %s -> %s", from, to)
	return routes
}

// departureParam accepts either a combined start_time or the split
// date + time pair. start_time wins when both styles are present; a date
// without a time means the start of that day.
func departureParam(query url.Values) string {
	if raw := strings.TrimSpace(query.Get("start_time")); raw != "" {
		return raw
	}
	date := strings.TrimSpace(query.Get("date"))
	if date == "" {
		return ""
	}
	clock := strings.TrimSpace(query.Get("time"))
	if clock == "" {
		clock = "00:00"
	}
	return date + "T" + clock
}

func parseCoordinate(latStr, lonStr string) (models.Coordinate, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return models.Coordinate{}, err
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return models.Coordinate{}, err
	}
	return models.Coordinate{Latitude: lat, Longitude: lon}, nil
}
