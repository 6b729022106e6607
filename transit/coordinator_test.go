package transit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
)

// stubProvider is a RouteProvider with canned behavior for chain tests
type stubProvider struct {
	name    string
	results []models.CanonicalRouteResult
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, q models.RouteQuery) ([]models.CanonicalRouteResult, error) {
	s.calls++
	return s.results, s.err
}

func testQuery() models.RouteQuery {
	return models.RouteQuery{OriginID: "hikone", DestinationID: "maibara"}
}

func TestCoordinator_ShortCircuitsOnSuccess(t *testing.T) {
	p1 := &stubProvider{name: "p1", err: errors.New("connection refused")}
	p2 := &stubProvider{name: "p2", results: []models.CanonicalRouteResult{{Provider: "p2"}}}
	p3 := &stubProvider{name: "p3", results: []models.CanonicalRouteResult{{Provider: "p3"}}}

	c := NewCoordinator([]RouteProvider{p1, p2, p3}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateSucceeded {
		t.Fatalf("expected state succeeded, got %s", outcome.State)
	}
	if outcome.Provider != "p2" {
		t.Errorf("expected winning provider p2, got %q", outcome.Provider)
	}
	if p3.calls != 0 {
		t.Errorf("p3 should never be invoked after p2 succeeds, got %d calls", p3.calls)
	}
	if len(outcome.Failures) != 1 || outcome.Failures[0].Provider != "p1" {
		t.Errorf("expected one recorded failure for p1, got %+v", outcome.Failures)
	}
}

func TestCoordinator_SkipsProvidersWithoutCredential(t *testing.T) {
	p1 := &stubProvider{name: "p1", err: config.ErrNoCredential}
	p2 := &stubProvider{name: "p2", err: ErrUnsupportedQuery}
	p3 := &stubProvider{name: "p3", results: []models.CanonicalRouteResult{{Provider: "p3"}}}

	c := NewCoordinator([]RouteProvider{p1, p2, p3}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateSucceeded {
		t.Fatalf("expected state succeeded, got %s", outcome.State)
	}
	if outcome.Provider != "p3" {
		t.Errorf("expected winning provider p3, got %q", outcome.Provider)
	}
	if len(outcome.Skipped) != 2 {
		t.Errorf("expected 2 skipped providers, got %v", outcome.Skipped)
	}
	if len(outcome.Failures) != 0 {
		t.Errorf("skips must not count as failures, got %+v", outcome.Failures)
	}
}

func TestCoordinator_AllEmptyIsExhaustedEmpty(t *testing.T) {
	p1 := &stubProvider{name: "p1"}
	p2 := &stubProvider{name: "p2"}

	c := NewCoordinator([]RouteProvider{p1, p2}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateExhaustedEmpty {
		t.Errorf("expected exhausted_empty, got %s", outcome.State)
	}
	if p1.calls != 1 || p2.calls != 1 {
		t.Errorf("every provider should be attempted, got %d/%d calls", p1.calls, p2.calls)
	}
}

func TestCoordinator_AllFailedIsExhaustedError(t *testing.T) {
	p1 := &stubProvider{name: "p1", err: errors.New("timeout")}
	p2 := &stubProvider{name: "p2", err: errors.New("dns failure")}

	c := NewCoordinator([]RouteProvider{p1, p2}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateExhaustedError {
		t.Errorf("expected exhausted_error, got %s", outcome.State)
	}
	if len(outcome.Failures) != 2 {
		t.Errorf("expected 2 failures, got %+v", outcome.Failures)
	}
}

func TestCoordinator_EmptyPlusFailureIsExhaustedEmpty(t *testing.T) {
	// One provider answered "no routes", so the chain as a whole got a
	// meaningful answer even though another provider transport-failed.
	p1 := &stubProvider{name: "p1", err: errors.New("timeout")}
	p2 := &stubProvider{name: "p2"}

	c := NewCoordinator([]RouteProvider{p1, p2}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateExhaustedEmpty {
		t.Errorf("expected exhausted_empty, got %s", outcome.State)
	}
}

func TestCoordinator_AllSkippedIsExhaustedEmpty(t *testing.T) {
	p1 := &stubProvider{name: "p1", err: config.ErrNoCredential}
	p2 := &stubProvider{name: "p2", err: ErrUnsupportedQuery}

	c := NewCoordinator([]RouteProvider{p1, p2}, time.Second)
	outcome := c.Search(context.Background(), testQuery())

	if outcome.State != StateExhaustedEmpty {
		t.Errorf("expected exhausted_empty when every provider is skipped, got %s", outcome.State)
	}
}

func TestCoordinator_CancelledContextAbortsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p1 := &stubProvider{name: "p1", results: []models.CanonicalRouteResult{{Provider: "p1"}}}

	c := NewCoordinator([]RouteProvider{p1}, time.Second)
	outcome := c.Search(ctx, testQuery())

	if outcome.State == StateSucceeded {
		t.Error("cancelled context must not produce a success")
	}
	if p1.calls != 0 {
		t.Errorf("provider should not be invoked after cancellation, got %d calls", p1.calls)
	}
}
