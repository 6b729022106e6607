package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/places"
)

// Geocoder defines the place operations the handler needs
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*places.GeocodeResult, error)
	PlacePhotos(ctx context.Context, placeID string) ([]string, error)
}

// GeocodeHandler handles HTTP requests for shop geocoding and photos
type GeocodeHandler struct {
	geocoder Geocoder
}

// NewGeocodeHandler creates a new handler with the given geocoder
func NewGeocodeHandler(geocoder Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

// GeocodeRequest is the JSON request body for POST /geocode
type GeocodeRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// GeocodeResponse is the JSON response structure for POST /geocode
type GeocodeResponse struct {
	Success          bool    `json:"success"`
	Latitude         float64 `json:"latitude,omitempty"`
	Longitude        float64 `json:"longitude,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Error            string  `json:"error,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// PhotosRequest is the JSON request body for POST /place-photos
type PhotosRequest struct {
	PlaceID string `json:"place_id"`
}

// PhotosResponse is the JSON response structure for POST /place-photos
type PhotosResponse struct {
	Success   bool     `json:"success"`
	PhotoURLs []string `json:"photoUrls"`
	Error     string   `json:"error,omitempty"`
}

// Geocode handles POST /geocode
// Resolves a shop address (or name, when no address exists) to coordinates
func (h *GeocodeHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GeocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GeocodeResponse{Success: false, Error: "invalid request body"})
		return
	}

	// Address wins over name when both are present
	searchQuery := req.Address
	if searchQuery == "" {
		searchQuery = req.Name
	}
	if searchQuery == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(GeocodeResponse{Success: false, Error: "No address or name provided"})
		return
	}

	result, err := h.geocoder.Geocode(ctx, searchQuery)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			log.Printf("geocode: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "API key not configured"})
			return
		}
		var status *places.StatusError
		if errors.As(err, &status) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(GeocodeResponse{
				Success:      false,
				Error:        status.Status,
				ErrorMessage: statusMessage(status),
			})
			return
		}
		log.Printf("geocode: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "geocoding failed"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(GeocodeResponse{
		Success:          true,
		Latitude:         result.Latitude,
		Longitude:        result.Longitude,
		PlaceID:          result.PlaceID,
		FormattedAddress: result.FormattedAddress,
	})
}

// PlacePhotos handles POST /place-photos
// A place with zero photos is a valid answer: 200 with an empty list
func (h *GeocodeHandler) PlacePhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PhotosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlaceID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "place_id is required"})
		return
	}

	urls, err := h.geocoder.PlacePhotos(ctx, req.PlaceID)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			log.Printf("place photos: %v", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "API key not configured"})
			return
		}
		log.Printf("place photos: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "photo lookup failed"})
		return
	}

	if len(urls) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(PhotosResponse{
			Success:   false,
			PhotoURLs: []string{},
			Error:     "no photos found",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(PhotosResponse{Success: true, PhotoURLs: urls})
}

func statusMessage(err *places.StatusError) string {
	if err.Message != "" {
		return err.Message
	}
	return "No results found"
}
