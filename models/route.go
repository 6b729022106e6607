package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RouteQuery is the canonical route-search request, independent of any one
// provider's schema. Origin and destination are addressed either by a
// provider-facing identifier (station name, station code or place id) or by
// a coordinate pair; each provider picks the addressing style it supports.
type RouteQuery struct {
	OriginID      string
	DestinationID string

	OriginCoord      *Coordinate
	DestinationCoord *Coordinate

	// Departure is the requested departure instant. The zero value means
	// "now at call time".
	Departure time.Time

	ResultLimit int
}

// HasIDs reports whether the query carries identifier-based addressing
func (q *RouteQuery) HasIDs() bool {
	return q.OriginID != "" && q.DestinationID != ""
}

// HasCoordinates reports whether the query carries coordinate-based addressing
func (q *RouteQuery) HasCoordinates() bool {
	return q.OriginCoord != nil && q.DestinationCoord != nil
}

// Validate checks that at least one complete addressing style is present
func (q *RouteQuery) Validate() error {
	if !q.HasIDs() && !q.HasCoordinates() {
		return errors.New("route query needs either origin/destination ids or a coordinate pair")
	}
	return nil
}

// RouteLeg is one boarded segment of a canonical route
type RouteLeg struct {
	Mode          string `json:"mode"` // "transit" or "walk"
	Line          string `json:"line,omitempty"`
	FromStop      string `json:"fromStop,omitempty"`
	ToStop        string `json:"toStop,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
}

// CanonicalRouteResult is one route in the system's normalized shape,
// regardless of which provider produced it. Immutable once constructed.
type CanonicalRouteResult struct {
	Provider      string          `json:"provider"`
	DepartureTime time.Time       `json:"departureTime"`
	ArrivalTime   *time.Time      `json:"arrivalTime,omitempty"`
	TransferCount int             `json:"transferCount"`
	FareYen       int             `json:"fareYen,omitempty"`
	Legs          []RouteLeg      `json:"legs"`
	Raw           json.RawMessage `json:"raw,omitempty"` // opaque provider payload
}

// StationMatch is one hit from a name-based station search. Matches are not
// guaranteed unique; callers pick the first match by convention.
type StationMatch struct {
	ExternalID   string  `json:"id"`
	DisplayName  string  `json:"title"`
	OperatorName string  `json:"railway"`
	StationCode  *string `json:"stationCode"`
}

// CachedRoute is a persisted copy of a shaped successful route search,
// served when every live provider transport-fails.
type CachedRoute struct {
	ID         uuid.UUID
	FromKey    string
	ToKey      string
	SearchDate string // YYYYMMDD
	SearchTime string // HHMM
	Routes     json.RawMessage
	CreatedAt  time.Time
	ValidUntil time.Time
}
