package transit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
)

// EkispertClient talks to the Ekispert route-search API. The free-plan
// "light" endpoints are used for both course search and station name
// suggestion.
type EkispertClient struct {
	baseURL string
	creds   *config.Resolver
	client  *http.Client
}

// NewEkispertClient creates a client against the given Ekispert base URL
func NewEkispertClient(baseURL string, creds *config.Resolver, timeout time.Duration) *EkispertClient {
	return &EkispertClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements RouteProvider
func (c *EkispertClient) Name() string {
	return "ekispert"
}

// StationSuggestion is one hit from the station/light name suggester
type StationSuggestion struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ambiguousStations maps station names that exist in multiple prefectures
// to their disambiguated form, which Ekispert requires.
var ambiguousStations = map[string]string{
	"草津":  "草津(滋賀)",
	"草津駅": "草津(滋賀)",
}

// normalizeStationName applies prefecture disambiguation to names known to
// collide. Names already carrying a "(...)" qualifier pass through.
func normalizeStationName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "(") && strings.Contains(name, ")") {
		return name
	}
	if qualified, ok := ambiguousStations[name]; ok {
		return qualified
	}
	return name
}

// Search implements RouteProvider over the search/course/light endpoint.
// Origin and destination are station names or Ekispert station codes.
func (c *EkispertClient) Search(ctx context.Context, q models.RouteQuery) ([]models.CanonicalRouteResult, error) {
	if !q.HasIDs() {
		return nil, ErrUnsupportedQuery
	}

	cred, err := c.creds.Resolve(config.ProviderEkispert)
	if err != nil {
		return nil, err
	}

	departure := q.Departure
	if departure.IsZero() {
		departure = time.Now()
	}
	departure = departure.In(JST)

	params := url.Values{}
	params.Set("key", cred.Key)
	params.Set("from", normalizeStationName(q.OriginID))
	params.Set("to", normalizeStationName(q.DestinationID))
	params.Set("date", departure.Format("20060102"))
	params.Set("time", departure.Format("1504"))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/json/search/course/light?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// E102 is Ekispert's "station name not found". That is a valid
		// "nothing found" answer for this provider, not a failure.
		if strings.Contains(string(body), "E102") {
			return nil, nil
		}
		return nil, &TransportError{
			Provider: "ekispert",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var envelope struct {
		ResultSet struct {
			ResourceURI string          `json:"ResourceURI"`
			Course      json.RawMessage `json:"Course"`
		} `json:"ResultSet"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: fmt.Errorf("decode response: %w", err)}
	}

	// The light plan may answer with only a ResourceURI and no course
	// detail. Without course data there is nothing to normalize, so the
	// chain moves on to the next provider.
	if len(envelope.ResultSet.Course) == 0 {
		return nil, nil
	}

	courses, err := asArray[ekispertCourse](envelope.ResultSet.Course)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: fmt.Errorf("decode courses: %w", err)}
	}

	results := make([]models.CanonicalRouteResult, 0, len(courses))
	for _, course := range courses {
		if result, ok := c.convertCourse(course, departure); ok {
			results = append(results, result)
		}
	}
	return results, nil
}

type ekispertCourse struct {
	Price json.RawMessage `json:"Price"`
	Route struct {
		Line json.RawMessage `json:"Line"`
	} `json:"Route"`
}

type ekispertPrice struct {
	Kind   string `json:"kind"`
	Oneway string `json:"Oneway"`
}

type ekispertState struct {
	Datetime struct {
		Text string `json:"text"`
	} `json:"Datetime"`
	Station struct {
		Name string `json:"Name"`
	} `json:"Station"`
}

type ekispertRouteLine struct {
	Line struct {
		Name string `json:"Name"`
	} `json:"Line"`
	Type struct {
		Name string `json:"Name"`
	} `json:"Type"`
	DepartureState ekispertState `json:"DepartureState"`
	ArrivalState   ekispertState `json:"ArrivalState"`
}

func (c *EkispertClient) convertCourse(course ekispertCourse, base time.Time) (models.CanonicalRouteResult, bool) {
	lines, err := asArray[ekispertRouteLine](course.Route.Line)
	if err != nil || len(lines) == 0 {
		return models.CanonicalRouteResult{}, false
	}

	fare := 0
	if prices, err := asArray[ekispertPrice](course.Price); err == nil {
		for _, p := range prices {
			if p.Kind == "FareSummary" || p.Kind == "ChargeSummary" {
				if v, err := strconv.Atoi(p.Oneway); err == nil {
					fare += v
				}
			}
		}
	}

	legs := make([]models.RouteLeg, 0, len(lines))
	for _, line := range lines {
		name := line.Line.Name
		if line.Type.Name != "" {
			name = line.Type.Name + " " + name
		}
		legs = append(legs, models.RouteLeg{
			Mode:          "transit",
			Line:          name,
			FromStop:      line.DepartureState.Station.Name,
			ToStop:        line.ArrivalState.Station.Name,
			DepartureTime: line.DepartureState.Datetime.Text,
			ArrivalTime:   line.ArrivalState.Datetime.Text,
		})
	}

	departureTime := parseEkispertTime(lines[0].DepartureState.Datetime.Text, base)
	if departureTime == nil {
		t := base
		departureTime = &t
	}
	arrivalTime := parseEkispertTime(lines[len(lines)-1].ArrivalState.Datetime.Text, base)
	// An arrival before the departure crosses midnight
	if arrivalTime != nil && arrivalTime.Before(*departureTime) {
		t := arrivalTime.AddDate(0, 0, 1)
		arrivalTime = &t
	}

	raw, _ := json.Marshal(course)

	return models.CanonicalRouteResult{
		Provider:      "ekispert",
		DepartureTime: *departureTime,
		ArrivalTime:   arrivalTime,
		TransferCount: len(lines) - 1,
		FareYen:       fare,
		Legs:          legs,
		Raw:           raw,
	}, true
}

// parseEkispertTime handles both full ISO datetimes and bare "HH:mm"
// clock values, anchoring the latter to base's date in JST.
func parseEkispertTime(text string, base time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.ContainsRune(text, 'T') {
		if t, err := ParseLocalTime(text); err == nil {
			return &t
		}
		return nil
	}
	clock, err := time.Parse("15:04", text)
	if err != nil {
		return nil
	}
	t := time.Date(base.Year(), base.Month(), base.Day(), clock.Hour(), clock.Minute(), 0, 0, JST)
	return &t
}

// SuggestStations returns station name completions from station/light
func (c *EkispertClient) SuggestStations(ctx context.Context, name string) ([]StationSuggestion, error) {
	cred, err := c.creds.Resolve(config.ProviderEkispert)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("key", cred.Key)
	params.Set("name", strings.TrimSpace(name))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/json/station/light?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{
			Provider: "ekispert",
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var envelope struct {
		ResultSet struct {
			Point json.RawMessage `json:"Point"`
		} `json:"ResultSet"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(envelope.ResultSet.Point) == 0 {
		return nil, nil
	}

	type point struct {
		Station struct {
			Code string `json:"code"`
			Name string `json:"Name"`
		} `json:"Station"`
	}
	points, err := asArray[point](envelope.ResultSet.Point)
	if err != nil {
		return nil, &TransportError{Provider: "ekispert", Err: fmt.Errorf("decode points: %w", err)}
	}

	suggestions := make([]StationSuggestion, 0, len(points))
	for _, p := range points {
		if p.Station.Name == "" {
			continue
		}
		suggestions = append(suggestions, StationSuggestion{Name: p.Station.Name, Code: p.Station.Code})
	}
	return suggestions, nil
}

// asArray decodes a JSON value that Ekispert serializes as either a single
// object or an array of objects, always returning a slice.
func asArray[T any](raw json.RawMessage) ([]T, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
