package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/places"
)

type fakeGeocoder struct {
	result     *places.GeocodeResult
	geocodeErr error

	photos    []string
	photosErr error

	lastQuery string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) (*places.GeocodeResult, error) {
	f.lastQuery = query
	return f.result, f.geocodeErr
}

func (f *fakeGeocoder) PlacePhotos(ctx context.Context, placeID string) ([]string, error) {
	return f.photos, f.photosErr
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGeocode_Success(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{result: &places.GeocodeResult{
		Latitude:         35.2745,
		Longitude:        136.2596,
		PlaceID:          "ChIJxxx",
		FormattedAddress: "滋賀県彦根市金亀町1-1",
	}})

	rec := postJSON(t, h.Geocode, "/geocode", `{"address":"彦根城"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp GeocodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	if resp.Latitude != 35.2745 || resp.PlaceID != "ChIJxxx" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGeocode_AddressWinsOverName(t *testing.T) {
	g := &fakeGeocoder{result: &places.GeocodeResult{}}
	h := NewGeocodeHandler(g)

	postJSON(t, h.Geocode, "/geocode", `{"name":"たねや","address":"彦根市本町"}`)

	if g.lastQuery != "彦根市本町" {
		t.Errorf("address should win over name, got query %q", g.lastQuery)
	}
}

func TestGeocode_NameFallback(t *testing.T) {
	g := &fakeGeocoder{result: &places.GeocodeResult{}}
	h := NewGeocodeHandler(g)

	postJSON(t, h.Geocode, "/geocode", `{"name":"たねや"}`)

	if g.lastQuery != "たねや" {
		t.Errorf("expected name fallback, got query %q", g.lastQuery)
	}
}

func TestGeocode_MissingBothExactError(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{})

	rec := postJSON(t, h.Geocode, "/geocode", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var resp GeocodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Success {
		t.Error("expected success false")
	}
	if resp.Error != "No address or name provided" {
		t.Errorf("expected exact error string, got %q", resp.Error)
	}
}

func TestGeocode_InvalidBody(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{})

	rec := postJSON(t, h.Geocode, "/geocode", `not json`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGeocode_NoCredential(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{geocodeErr: config.ErrNoCredential})

	rec := postJSON(t, h.Geocode, "/geocode", `{"address":"彦根城"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "API key not configured") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestGeocode_UpstreamStatus(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{geocodeErr: &places.StatusError{Status: "ZERO_RESULTS"}})

	rec := postJSON(t, h.Geocode, "/geocode", `{"address":"存在しない場所xyz"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	var resp GeocodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error != "ZERO_RESULTS" {
		t.Errorf("expected upstream status in error, got %q", resp.Error)
	}
	if resp.ErrorMessage != "No results found" {
		t.Errorf("expected default message, got %q", resp.ErrorMessage)
	}
}

func TestPlacePhotos_Success(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{photos: []string{"https://example.com/p1", "https://example.com/p2"}})

	rec := postJSON(t, h.PlacePhotos, "/place-photos", `{"place_id":"ChIJxxx"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp PhotosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !resp.Success || len(resp.PhotoURLs) != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPlacePhotos_NoPhotosIsOK(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{})

	rec := postJSON(t, h.PlacePhotos, "/place-photos", `{"place_id":"ChIJxxx"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("zero photos is still 200, got %d", rec.Code)
	}
	var resp PhotosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Success {
		t.Error("expected success false for zero photos")
	}
	if resp.PhotoURLs == nil || len(resp.PhotoURLs) != 0 {
		t.Errorf("expected empty list, got %v", resp.PhotoURLs)
	}
	if resp.Error != "no photos found" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestPlacePhotos_MissingPlaceID(t *testing.T) {
	h := NewGeocodeHandler(&fakeGeocoder{})

	rec := postJSON(t, h.PlacePhotos, "/place-photos", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
