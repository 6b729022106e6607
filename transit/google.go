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

// GoogleDirectionsClient queries the Google Directions API in transit mode.
// It serves two roles: the raw place-id route endpoint (payload passed
// through untouched) and a RouteProvider in the fallback chain.
type GoogleDirectionsClient struct {
	baseURL string
	creds   *config.Resolver
	client  *http.Client
}

// NewGoogleDirectionsClient creates a client against the given Maps base URL
func NewGoogleDirectionsClient(baseURL string, creds *config.Resolver, timeout time.Duration) *GoogleDirectionsClient {
	return &GoogleDirectionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements RouteProvider
func (c *GoogleDirectionsClient) Name() string {
	return "google-directions"
}

// RawTransitRoute runs a transit directions search between two place ids
// and returns the upstream payload untouched. Semantic upstream statuses
// like ZERO_RESULTS or INVALID_REQUEST stay inside the payload even when
// the upstream answers non-2xx: the caller renders them, they are never
// turned into an HTTP error. Only network failures and non-JSON bodies
// are failures on this path.
func (c *GoogleDirectionsClient) RawTransitRoute(ctx context.Context, startID, goalID string, departureEpoch int64) (json.RawMessage, error) {
	cred, err := c.creds.Resolve(config.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", "place_id:"+startID)
	params.Set("destination", "place_id:"+goalID)
	params.Set("mode", "transit")
	params.Set("departure_time", fmt.Sprintf("%d", departureEpoch))
	params.Set("language", "ja")
	params.Set("key", cred.Key)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/directions/json?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	if !json.Valid(body) {
		return nil, &TransportError{
			Provider: c.Name(),
			Err:      fmt.Errorf("status %d: non-JSON body %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}
	return body, nil
}

// googleDirections is the subset of the directions payload needed to build
// canonical results
type googleDirections struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			DepartureTime *googleTime `json:"departure_time"`
			ArrivalTime   *googleTime `json:"arrival_time"`
			Steps         []struct {
				TravelMode     string `json:"travel_mode"`
				TransitDetails *struct {
					Line struct {
						ShortName string `json:"short_name"`
						Name      string `json:"name"`
					} `json:"line"`
					DepartureStop struct {
						Name string `json:"name"`
					} `json:"departure_stop"`
					ArrivalStop struct {
						Name string `json:"name"`
					} `json:"arrival_stop"`
					DepartureTime *googleTime `json:"departure_time"`
					ArrivalTime   *googleTime `json:"arrival_time"`
				} `json:"transit_details"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

type googleTime struct {
	Value int64  `json:"value"`
	Text  string `json:"text"`
}

// Search implements RouteProvider. Origin and destination ids are passed
// through as free-text waypoints, which Directions resolves itself; a
// ZERO_RESULTS or NOT_FOUND status is the empty answer, any other non-OK
// status is a transport failure.
func (c *GoogleDirectionsClient) Search(ctx context.Context, q models.RouteQuery) ([]models.CanonicalRouteResult, error) {
	cred, err := c.creds.Resolve(config.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	switch {
	case q.HasIDs():
		params.Set("origin", q.OriginID)
		params.Set("destination", q.DestinationID)
	case q.HasCoordinates():
		params.Set("origin", fmt.Sprintf("%f,%f", q.OriginCoord.Latitude, q.OriginCoord.Longitude))
		params.Set("destination", fmt.Sprintf("%f,%f", q.DestinationCoord.Latitude, q.DestinationCoord.Longitude))
	default:
		return nil, ErrUnsupportedQuery
	}

	departure := q.Departure
	if departure.IsZero() {
		departure = time.Now()
	}
	params.Set("mode", "transit")
	params.Set("departure_time", fmt.Sprintf("%d", departure.Unix()))
	params.Set("language", "ja")
	params.Set("alternatives", "true")
	params.Set("key", cred.Key)

	raw, err := c.fetchDirections(ctx, params)
	if err != nil {
		return nil, err
	}

	var payload googleDirections
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, &TransportError{
			Provider: c.Name(),
			Err:      fmt.Errorf("status %s: %s", payload.Status, payload.ErrorMessage),
		}
	}

	results := make([]models.CanonicalRouteResult, 0, len(payload.Routes))
	for _, route := range payload.Routes {
		if len(route.Legs) == 0 {
			continue
		}
		leg := route.Legs[0]

		result := models.CanonicalRouteResult{
			Provider:      c.Name(),
			DepartureTime: departure,
		}
		if leg.DepartureTime != nil {
			result.DepartureTime = time.Unix(leg.DepartureTime.Value, 0)
		}
		if leg.ArrivalTime != nil {
			t := time.Unix(leg.ArrivalTime.Value, 0)
			result.ArrivalTime = &t
		}

		transitLegs := 0
		for _, step := range leg.Steps {
			if step.TravelMode == "TRANSIT" && step.TransitDetails != nil {
				td := step.TransitDetails
				line := td.Line.ShortName
				if line == "" {
					line = td.Line.Name
				}
				routeLeg := models.RouteLeg{
					Mode:     "transit",
					Line:     line,
					FromStop: td.DepartureStop.Name,
					ToStop:   td.ArrivalStop.Name,
				}
				if td.DepartureTime != nil {
					routeLeg.DepartureTime = td.DepartureTime.Text
				}
				if td.ArrivalTime != nil {
					routeLeg.ArrivalTime = td.ArrivalTime.Text
				}
				result.Legs = append(result.Legs, routeLeg)
				transitLegs++
			} else if step.TravelMode == "WALKING" {
				result.Legs = append(result.Legs, models.RouteLeg{Mode: "walk"})
			}
		}
		if transitLegs == 0 {
			continue
		}
		result.TransferCount = transitLegs - 1

		results = append(results, result)
	}
	return results, nil
}

func (c *GoogleDirectionsClient) fetchDirections(ctx context.Context, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/directions/json?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: c.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Provider: c.Name(),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}
	return body, nil
}
