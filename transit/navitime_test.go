package transit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
)

func navitimeCreds() *config.Resolver {
	return testCreds(map[string]string{"RAPIDAPI_KEY": "rapid-key"})
}

const navitimeBody = `{
	"items": [
		{
			"summary": {
				"start_time": "2024-03-15T08:00:00",
				"goal_time": "2024-03-15T08:25:00",
				"move": {"transit_count": 1}
			},
			"sections": [
				{"type": "point"},
				{"type": "move", "transport": {"name": "徒歩"}, "from_time": "08:00", "to_time": "08:05"},
				{"type": "move", "transport": {"name": "JR東海道本線"}, "start_name": "彦根", "goal_name": "米原", "from_time": "08:05", "to_time": "08:11"},
				{"type": "move", "transport": {"name": "近江鉄道本線"}, "start_name": "米原", "goal_name": "フジテック前", "from_time": "08:15", "to_time": "08:25"}
			]
		}
	]
}`

func navitimeQuery() models.RouteQuery {
	return models.RouteQuery{
		OriginCoord:      &models.Coordinate{Latitude: 35.2704, Longitude: 136.2555},
		DestinationCoord: &models.Coordinate{Latitude: 35.3147, Longitude: 136.2901},
		Departure:        time.Date(2024, 3, 15, 8, 0, 0, 0, JST),
	}
}

func TestNavitimeSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route_transit" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-RapidAPI-Key") != "rapid-key" {
			t.Error("missing X-RapidAPI-Key header")
		}
		if r.Header.Get("X-RapidAPI-Host") != "test-host" {
			t.Errorf("unexpected X-RapidAPI-Host %q", r.Header.Get("X-RapidAPI-Host"))
		}
		q := r.URL.Query()
		if q.Get("datum") != "wgs84" || q.Get("term") != "1440" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(navitimeBody))
	}))
	defer server.Close()

	c := NewNavitimeClient(server.URL, "test-host", navitimeCreds(), time.Second)
	results, err := c.Search(context.Background(), navitimeQuery())
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Provider != "navitime" {
		t.Errorf("expected provider navitime, got %q", r.Provider)
	}
	if len(r.Legs) != 3 {
		t.Fatalf("expected 3 legs, got %d", len(r.Legs))
	}
	if r.Legs[0].Mode != "walk" {
		t.Errorf("徒歩 section should map to walk, got %q", r.Legs[0].Mode)
	}
	if r.Legs[1].Mode != "transit" || r.Legs[1].Line != "JR東海道本線" {
		t.Errorf("unexpected second leg %+v", r.Legs[1])
	}
	if r.TransferCount != 1 {
		t.Errorf("two transit legs mean 1 transfer, got %d", r.TransferCount)
	}
	if r.ArrivalTime == nil {
		t.Fatal("expected arrival time")
	}
	wantArrival := time.Date(2024, 3, 15, 8, 25, 0, 0, JST)
	if !r.ArrivalTime.Equal(wantArrival) {
		t.Errorf("expected arrival %v, got %v", wantArrival, r.ArrivalTime)
	}
}

func TestNavitimeSearch_NameQueryUnsupported(t *testing.T) {
	c := NewNavitimeClient("http://unused", "test-host", navitimeCreds(), time.Second)
	_, err := c.Search(context.Background(), models.RouteQuery{OriginID: "彦根", DestinationID: "米原"})
	if !errors.Is(err, ErrUnsupportedQuery) {
		t.Errorf("expected ErrUnsupportedQuery, got %v", err)
	}
}

func TestNavitimeSearch_NoCredential(t *testing.T) {
	c := NewNavitimeClient("http://unused", "test-host", testCreds(nil), time.Second)
	_, err := c.Search(context.Background(), navitimeQuery())
	if !errors.Is(err, config.ErrNoCredential) {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestNavitimeRawRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(navitimeBody))
	}))
	defer server.Close()

	c := NewNavitimeClient(server.URL, "test-host", navitimeCreds(), time.Second)
	routes, err := c.RawRoutes(context.Background(),
		models.Coordinate{Latitude: 35.2704, Longitude: 136.2555},
		models.Coordinate{Latitude: 35.3147, Longitude: 136.2901},
		time.Date(2024, 3, 15, 8, 0, 0, 0, JST).Unix())
	if err != nil {
		t.Fatalf("RawRoutes returned error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].DepartureTime != "2024-03-15T08:00:00" {
		t.Errorf("unexpected departure %q", routes[0].DepartureTime)
	}
	if len(routes[0].RouteInfo) == 0 {
		t.Error("expected route info payload")
	}
}

func TestNavitimeRawRoutes_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	c := NewNavitimeClient(server.URL, "test-host", navitimeCreds(), time.Second)
	_, err := c.RawRoutes(context.Background(), models.Coordinate{}, models.Coordinate{}, 0)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", upstream.StatusCode)
	}
}
