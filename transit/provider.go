package transit

import (
	"context"
	"errors"
	"fmt"

	"github.com/hikoneportal/transit-api/models"
)

// ErrUnsupportedQuery is returned by a provider whose capability set does
// not match the query's addressing style (e.g. a coordinate-only provider
// given a name-based query). The coordinator skips the provider without
// counting it as a hard failure.
var ErrUnsupportedQuery = errors.New("query addressing not supported by provider")

// TransportError marks a network failure, a malformed payload, or a non-2xx
// upstream answer with no semantic meaning. It is distinct from an empty
// result: a provider that answers "no routes" in a structurally valid way
// returns an empty slice and no error.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError carries a non-2xx upstream status for endpoints whose
// contract forwards the upstream status to the caller.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// RouteProvider translates the canonical route query into one upstream
// API's request and the upstream response back into canonical results.
type RouteProvider interface {
	// Name identifies the provider in logs and shaped results
	Name() string

	// Search returns canonical results in departure-time order. An empty
	// slice with a nil error is the "no routes found" answer, which is
	// not an error. Failures are reported as *TransportError, or wrap
	// config.ErrNoCredential when the provider has no usable key.
	Search(ctx context.Context, q models.RouteQuery) ([]models.CanonicalRouteResult, error)
}
