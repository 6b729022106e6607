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

// ODPTClient queries an ODPT (public transport open data) API host for
// station lookups and station timetables. Two instances exist in practice,
// one per base host.
type ODPTClient struct {
	baseURL string
	creds   *config.Resolver
	client  *http.Client
}

// NewODPTClient creates a client against the given ODPT base URL
func NewODPTClient(baseURL string, creds *config.Resolver, timeout time.Duration) *ODPTClient {
	return &ODPTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  &http.Client{Timeout: timeout},
	}
}

// odptStation is the JSON-LD station record returned by odpt:Station
type odptStation struct {
	ID          string  `json:"@id"`
	SameAs      string  `json:"owl:sameAs"`
	Title       string  `json:"dc:title"`
	Railway     string  `json:"odpt:railway"`
	StationCode *string `json:"odpt:stationCode"`
}

// SearchStations looks up stations by display name. A structurally valid
// empty answer returns an empty slice, not an error.
func (c *ODPTClient) SearchStations(ctx context.Context, stationName string) ([]models.StationMatch, error) {
	cred, err := c.creds.Resolve(config.ProviderODPT)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("dc:title", stationName)
	params.Set("acl:consumerKey", cred.Key)

	var records []odptStation
	if err := c.getJSON(ctx, "/odpt:Station?"+params.Encode(), &records); err != nil {
		return nil, err
	}

	matches := make([]models.StationMatch, 0, len(records))
	for _, rec := range records {
		id := rec.SameAs
		if id == "" {
			id = rec.ID
		}
		title := rec.Title
		if title == "" {
			title = stationName
		}
		matches = append(matches, models.StationMatch{
			ExternalID:   id,
			DisplayName:  title,
			OperatorName: rec.Railway,
			StationCode:  rec.StationCode,
		})
	}
	return matches, nil
}

// odptTimetable is the JSON-LD record returned by odpt:StationTimetable
type odptTimetable struct {
	Title     string `json:"dc:title"`
	Operator  string `json:"odpt:operator"`
	Station   string `json:"odpt:station"`
	Railway   string `json:"odpt:railway"`
	Direction string `json:"odpt:railDirection"`
	Calendar  string `json:"odpt:calendar"`
	Objects   []struct {
		DepartureTime *string  `json:"odpt:departureTime"`
		TrainNumber   *string  `json:"odpt:trainNumber"`
		TrainType     *string  `json:"odpt:trainType"`
		Destinations  []string `json:"odpt:destinationStation"`
		TrainName     *string  `json:"odpt:trainName"`
	} `json:"odpt:stationTimetableObject"`
}

// StationTimetable fetches the timetable records for a station id,
// optionally filtered by operator id, simplified to the portal's shape.
func (c *ODPTClient) StationTimetable(ctx context.Context, stationID, operator string) ([]models.StationTimetable, error) {
	cred, err := c.creds.Resolve(config.ProviderODPT)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("odpt:station", stationID)
	if operator != "" {
		params.Set("odpt:operator", operator)
	}
	params.Set("acl:consumerKey", cred.Key)

	var records []odptTimetable
	if err := c.getJSON(ctx, "/odpt:StationTimetable?"+params.Encode(), &records); err != nil {
		return nil, err
	}

	timetables := make([]models.StationTimetable, 0, len(records))
	for _, rec := range records {
		tt := models.StationTimetable{
			StationID:   rec.Station,
			StationName: stationNameFromID(rec.Station),
			Operator:    rec.Operator,
			Railway:     rec.Railway,
			Direction:   rec.Direction,
			Calendar:    rec.Calendar,
			Trains:      make([]models.TimetableTrain, 0, len(rec.Objects)),
		}
		for _, obj := range rec.Objects {
			destinations := make([]string, 0, len(obj.Destinations))
			for _, d := range obj.Destinations {
				destinations = append(destinations, stationNameFromID(d))
			}
			tt.Trains = append(tt.Trains, models.TimetableTrain{
				DepartureTime: deref(obj.DepartureTime),
				TrainNumber:   deref(obj.TrainNumber),
				TrainType:     shortTypeName(deref(obj.TrainType)),
				Destinations:  destinations,
				TrainName:     deref(obj.TrainName),
			})
		}
		timetables = append(timetables, tt)
	}
	return timetables, nil
}

func (c *ODPTClient) getJSON(ctx context.Context, pathAndQuery string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+pathAndQuery, nil)
	if err != nil {
		return &TransportError{Provider: "odpt", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Provider: "odpt", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Provider: "odpt", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Provider: "odpt", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// stationNameFromID extracts the display segment of an ODPT station id,
// e.g. "odpt.Station:JR-West.Tokaido.Hikone" -> "Hikone"
func stationNameFromID(id string) string {
	parts := strings.Split(id, ".")
	return parts[len(parts)-1]
}

// shortTypeName trims the ODPT prefix from a train type id,
// e.g. "odpt.TrainType:Local" -> "Local"
func shortTypeName(id string) string {
	if idx := strings.LastIndexByte(id, ':'); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
