package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hikoneportal/transit-api/config"
)

func googleCreds() *config.Resolver {
	return config.NewResolverWithLookup(func(name string) string {
		if name == "GOOGLE_MAPS_API_KEY" {
			return "maps-key"
		}
		return ""
	})
}

func TestGeocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("region") != "jp" || q.Get("language") != "ja" {
			t.Errorf("expected jp/ja parameters, got %v", q)
		}
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"place_id": "ChIJxxx",
				"formatted_address": "滋賀県彦根市金亀町1-1",
				"geometry": {"location": {"lat": 35.2745, "lng": 136.2596}}
			}]
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, googleCreds(), time.Second)
	result, err := c.Geocode(context.Background(), "彦根城")
	if err != nil {
		t.Fatalf("Geocode returned error: %v", err)
	}
	if result.PlaceID != "ChIJxxx" {
		t.Errorf("unexpected place id %q", result.PlaceID)
	}
	if result.Latitude != 35.2745 || result.Longitude != 136.2596 {
		t.Errorf("unexpected coordinates %f,%f", result.Latitude, result.Longitude)
	}
}

func TestGeocode_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, googleCreds(), time.Second)
	_, err := c.Geocode(context.Background(), "存在しない場所xyz")

	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if status.Status != "ZERO_RESULTS" {
		t.Errorf("unexpected status %q", status.Status)
	}
}

func TestGeocode_NoCredential(t *testing.T) {
	c := NewClient("http://unused", config.NewResolverWithLookup(func(string) string { return "" }), time.Second)
	_, err := c.Geocode(context.Background(), "彦根城")
	if !errors.Is(err, config.ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestPlacePhotos_CapsAtFive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/place/details/json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"status": "OK",
			"result": {"photos": [
				{"photo_reference":"p1"},{"photo_reference":"p2"},{"photo_reference":"p3"},
				{"photo_reference":"p4"},{"photo_reference":"p5"},{"photo_reference":"p6"},
				{"photo_reference":"p7"}
			]}
		}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, googleCreds(), time.Second)
	urls, err := c.PlacePhotos(context.Background(), "ChIJxxx")
	if err != nil {
		t.Fatalf("PlacePhotos returned error: %v", err)
	}
	if len(urls) != 5 {
		t.Fatalf("expected 5 urls, got %d", len(urls))
	}
	if !strings.Contains(urls[0], "photo_reference=p1") {
		t.Errorf("unexpected first url %q", urls[0])
	}
	if !strings.Contains(urls[0], "maxwidth=800") {
		t.Errorf("expected maxwidth=800 in url %q", urls[0])
	}
}

func TestPlacePhotos_NoPhotosIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","result":{}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, googleCreds(), time.Second)
	urls, err := c.PlacePhotos(context.Background(), "ChIJxxx")
	if err != nil {
		t.Fatalf("no photos should not be an error, got %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("expected no urls, got %v", urls)
	}
}
