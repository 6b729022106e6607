package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
	"github.com/hikoneportal/transit-api/transit"
)

// StationDirectory defines the station lookup operations the handler needs
type StationDirectory interface {
	SearchStations(ctx context.Context, stationName string) ([]models.StationMatch, error)
}

// StationSuggester defines the name-completion operation
type StationSuggester interface {
	SuggestStations(ctx context.Context, name string) ([]transit.StationSuggestion, error)
}

// StationHandler handles HTTP requests for station lookups.
// Two directories are held on purpose: the search endpoint and the lookup
// endpoint have always queried different hosts of the same API family, and
// neither is known to be authoritative.
type StationHandler struct {
	search  StationDirectory
	lookup  StationDirectory
	suggest StationSuggester
}

// NewStationHandler creates a new handler with the given directories
func NewStationHandler(search, lookup StationDirectory, suggest StationSuggester) *StationHandler {
	return &StationHandler{search: search, lookup: lookup, suggest: suggest}
}

// StationSearchResponse is the JSON response structure for GET /transit/station-search
type StationSearchResponse struct {
	Stations []models.StationMatch `json:"stations"`
}

// StationLookupResponse is the JSON response structure for GET /transit/station
type StationLookupResponse struct {
	StationID *string               `json:"stationId"`
	Stations  []models.StationMatch `json:"stations"`
	Error     string                `json:"error,omitempty"`
}

// stationLookupError is the exact error body for GET /transit/station:
// {error, stationId: null} with no other fields
type stationLookupError struct {
	Error     string  `json:"error"`
	StationID *string `json:"stationId"`
}

// StationSuggestResponse is the JSON response structure for GET /transit/stations
type StationSuggestResponse struct {
	Stations []transit.StationSuggestion `json:"stations"`
	Error    string                      `json:"error,omitempty"`
}

// SearchStations handles GET /transit/station-search
// Always answers 200 with a list: an upstream failure degrades to an empty
// list because the caller is a UI that must render something.
func (h *StationHandler) SearchStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationName := r.URL.Query().Get("stationName")

	if stationName == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "stationName parameter is required",
		})
		return
	}

	matches, err := h.search.SearchStations(ctx, stationName)
	if err != nil {
		log.Printf("station-search: %v", err)
		matches = nil
	}

	// Trim the operator prefix from railway ids for display
	for i := range matches {
		matches[i].OperatorName = trimRailwayPrefix(matches[i].OperatorName)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(StationSearchResponse{Stations: ensureStations(matches)})
}

// LookupStation handles GET /transit/station
// Resolves a station name to the first matching station id. Unlike the
// search endpoint, a non-2xx upstream answer is forwarded with its status.
func (h *StationHandler) LookupStation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationName := r.URL.Query().Get("stationName")

	if stationName == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(stationLookupError{
			Error:     "stationName parameter is required",
			StationID: nil,
		})
		return
	}

	matches, err := h.lookup.SearchStations(ctx, stationName)
	if err != nil {
		var upstream *transit.UpstreamError
		status := http.StatusInternalServerError
		if errors.As(err, &upstream) {
			status = upstream.StatusCode
		}
		log.Printf("station lookup: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(stationLookupError{
			Error:     "station lookup failed",
			StationID: nil,
		})
		return
	}

	response := StationLookupResponse{Stations: ensureStations(matches)}
	if len(matches) > 0 {
		// Multiple stations may share a name; first match by convention
		response.StationID = &matches[0].ExternalID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// SuggestStations handles GET /transit/stations
// Station name completion backed by the route-search provider's directory
func (h *StationHandler) SuggestStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.URL.Query().Get("name")

	if strings.TrimSpace(name) == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(StationSuggestResponse{
			Stations: []transit.StationSuggestion{},
			Error:    "name parameter is required",
		})
		return
	}

	suggestions, err := h.suggest.SuggestStations(ctx, name)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(StationSuggestResponse{
				Stations: []transit.StationSuggestion{},
				Error:    "provider credential is not configured",
			})
			return
		}
		log.Printf("station suggest: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(StationSuggestResponse{
			Stations: []transit.StationSuggestion{},
			Error:    "station suggestion failed",
		})
		return
	}

	if suggestions == nil {
		suggestions = []transit.StationSuggestion{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(StationSuggestResponse{Stations: suggestions})
}

func ensureStations(matches []models.StationMatch) []models.StationMatch {
	if matches == nil {
		return []models.StationMatch{}
	}
	return matches
}

// trimRailwayPrefix drops the "odpt.Railway:" style prefix from a railway id
func trimRailwayPrefix(railway string) string {
	if idx := strings.LastIndexByte(railway, ':'); idx >= 0 {
		return railway[idx+1:]
	}
	return railway
}
