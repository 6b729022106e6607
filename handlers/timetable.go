package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/bluele/gcache"

	"github.com/hikoneportal/transit-api/models"
)

// TimetableSource fetches simplified station timetables
type TimetableSource interface {
	StationTimetable(ctx context.Context, stationID, operator string) ([]models.StationTimetable, error)
}

// TimetableHandler handles HTTP requests for station timetables.
// Timetables change rarely, so responses are held in an LRU cache with a
// TTL instead of hitting the upstream on every poll.
type TimetableHandler struct {
	source TimetableSource
	cache  gcache.Cache
}

// NewTimetableHandler creates a new handler with a response cache of the
// given size and TTL
func NewTimetableHandler(source TimetableSource, cacheSize int, cacheTTL time.Duration) *TimetableHandler {
	return &TimetableHandler{
		source: source,
		cache: gcache.New(cacheSize).
			LRU().
			Expiration(cacheTTL).
			Build(),
	}
}

// TimetableResponse is the JSON response structure for GET /transit/timetable
type TimetableResponse struct {
	Timetables []models.StationTimetable `json:"timetables"`
	Error      string                    `json:"error,omitempty"`
}

// GetTimetable handles GET /transit/timetable
// Upstream failure degrades to an empty list at 200: the timetable widget
// must render something.
func (h *TimetableHandler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationID := r.URL.Query().Get("station")
	operator := r.URL.Query().Get("operator")

	if stationID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{
			Error: "station parameter is required",
		})
		return
	}

	cacheKey := stationID + "|" + operator
	if cached, err := h.cache.Get(cacheKey); err == nil {
		if timetables, ok := cached.([]models.StationTimetable); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(TimetableResponse{Timetables: timetables})
			return
		}
	}

	timetables, err := h.source.StationTimetable(ctx, stationID, operator)
	if err != nil {
		log.Printf("timetable: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(TimetableResponse{
			Timetables: []models.StationTimetable{},
			Error:      "timetable lookup failed",
		})
		return
	}
	if timetables == nil {
		timetables = []models.StationTimetable{}
	}

	if err := h.cache.Set(cacheKey, timetables); err != nil {
		log.Printf("timetable cache set failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(TimetableResponse{Timetables: timetables})
}
