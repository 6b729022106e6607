package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
)

// NavitimeClient queries the Navitime total-navi transit routing API hosted
// on RapidAPI. It is coordinate-addressed only.
type NavitimeClient struct {
	baseURL   string
	rapidHost string
	creds     *config.Resolver
	client    *http.Client
}

// NewNavitimeClient creates a client against the given RapidAPI base URL
func NewNavitimeClient(baseURL, rapidHost string, creds *config.Resolver, timeout time.Duration) *NavitimeClient {
	return &NavitimeClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		rapidHost: rapidHost,
		creds:     creds,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name implements RouteProvider
func (c *NavitimeClient) Name() string {
	return "navitime"
}

// NavitimeRoute is the trimmed per-route shape exposed by the raw
// coordinate endpoint
type NavitimeRoute struct {
	DepartureTime string          `json:"departure_time"`
	RouteInfo     json.RawMessage `json:"route_info"`
}

type navitimeItem struct {
	DepartureTime string `json:"departure_time"`
	Summary       struct {
		StartTime string          `json:"start_time"`
		GoalTime  string          `json:"goal_time"`
		Move      json.RawMessage `json:"move"`
	} `json:"summary"`
	Sections []struct {
		Type      string `json:"type"`
		Transport struct {
			Name string `json:"name"`
		} `json:"transport"`
		StartName string `json:"start_name"`
		GoalName  string `json:"goal_name"`
		FromTime  string `json:"from_time"`
		ToTime    string `json:"to_time"`
	} `json:"sections"`
	Raw json.RawMessage `json:"-"`
}

// RawRoutes runs a coordinate route search and returns the per-item
// summaries trimmed to the portal's shape, in upstream order.
func (c *NavitimeClient) RawRoutes(ctx context.Context, start, goal models.Coordinate, departureEpoch int64) ([]NavitimeRoute, error) {
	items, err := c.fetch(ctx, start, goal, departureEpoch)
	if err != nil {
		return nil, err
	}

	routes := make([]NavitimeRoute, 0, len(items))
	for _, raw := range items {
		var item navitimeItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		departure := item.Summary.StartTime
		if departure == "" {
			departure = item.DepartureTime
		}
		info, _ := json.Marshal(item.Summary)
		if len(item.Summary.Move) == 0 && item.Summary.StartTime == "" {
			// No summary block: fall back to the whole item
			info = raw
		}
		routes = append(routes, NavitimeRoute{DepartureTime: departure, RouteInfo: info})
	}
	return routes, nil
}

// Search implements RouteProvider for coordinate-addressed queries
func (c *NavitimeClient) Search(ctx context.Context, q models.RouteQuery) ([]models.CanonicalRouteResult, error) {
	if !q.HasCoordinates() {
		return nil, ErrUnsupportedQuery
	}

	departure := q.Departure
	if departure.IsZero() {
		departure = time.Now()
	}

	items, err := c.fetch(ctx, *q.OriginCoord, *q.DestinationCoord, departure.Unix())
	if err != nil {
		return nil, err
	}

	results := make([]models.CanonicalRouteResult, 0, len(items))
	for _, raw := range items {
		var item navitimeItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		result := models.CanonicalRouteResult{
			Provider:      c.Name(),
			DepartureTime: departure,
			Raw:           raw,
		}
		if t, err := ParseLocalTime(item.Summary.StartTime); err == nil {
			result.DepartureTime = t
		}
		if t, err := ParseLocalTime(item.Summary.GoalTime); err == nil {
			result.ArrivalTime = &t
		}

		transitLegs := 0
		for _, section := range item.Sections {
			switch section.Type {
			case "move":
				leg := models.RouteLeg{
					Mode:          "transit",
					Line:          section.Transport.Name,
					FromStop:      section.StartName,
					ToStop:        section.GoalName,
					DepartureTime: section.FromTime,
					ArrivalTime:   section.ToTime,
				}
				if section.Transport.Name == "" || section.Transport.Name == "徒歩" {
					leg.Mode = "walk"
					leg.Line = ""
				} else {
					transitLegs++
				}
				result.Legs = append(result.Legs, leg)
			}
		}
		if transitLegs > 0 {
			result.TransferCount = transitLegs - 1
		}

		results = append(results, result)
	}
	return results, nil
}

// fetch returns the raw items array from route_transit
func (c *NavitimeClient) fetch(ctx context.Context, start, goal models.Coordinate, departureEpoch int64) ([]json.RawMessage, error) {
	cred, err := c.creds.Resolve(config.ProviderNavitime)
	if err != nil {
		return nil, err
	}

	startTime := time.Unix(departureEpoch, 0).In(JST).Format("2006-01-02T15:04:05")

	params := url.Values{}
	params.Set("start", fmt.Sprintf("%f,%f", start.Latitude, start.Longitude))
	params.Set("goal", fmt.Sprintf("%f,%f", goal.Latitude, goal.Longitude))
	params.Set("datum", "wgs84")
	params.Set("term", "1440")
	params.Set("limit", "5")
	params.Set("start_time", startTime)
	params.Set("coord_unit", "degree")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/route_transit?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	req.Header.Set("X-RapidAPI-Key", cred.Key)
	req.Header.Set("X-RapidAPI-Host", c.rapidHost)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return payload.Items, nil
}
