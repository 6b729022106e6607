package transit

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hikoneportal/transit-api/config"
	"github.com/hikoneportal/transit-api/models"
)

// SearchState is the coordinator's terminal (or in-flight) state
type SearchState int

const (
	StateNotStarted SearchState = iota
	StateTrying
	StateSucceeded
	// StateExhaustedEmpty: every attempted provider answered "no routes".
	// This renders as a user-visible "no route found", not a failure.
	StateExhaustedEmpty
	// StateExhaustedError: every attempted provider transport-failed and
	// none produced even an empty answer.
	StateExhaustedError
)

func (s SearchState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhaustedEmpty:
		return "exhausted_empty"
	case StateExhaustedError:
		return "exhausted_error"
	default:
		return "unknown"
	}
}

// ProviderFailure records one provider's transport failure
type ProviderFailure struct {
	Provider string `json:"provider"`
	Error    string `json:"error"`
}

// SearchOutcome is the coordinator's final answer for one canonical query
type SearchOutcome struct {
	State    SearchState
	Provider string // winning provider, set only when State is StateSucceeded
	Results  []models.CanonicalRouteResult
	Failures []ProviderFailure
	Skipped  []string // providers skipped for missing credential or unsupported query
}

// Coordinator tries providers sequentially in a fixed declared priority
// order and short-circuits on the first non-empty success. Providers are
// deliberately not raced in parallel: the contract prefers an earlier
// provider's answer over a later one's.
type Coordinator struct {
	providers []RouteProvider
	timeout   time.Duration
}

// NewCoordinator creates a coordinator over providers in priority order.
// timeout bounds each individual provider attempt; expiry counts as a
// transport failure for that provider and the chain continues.
func NewCoordinator(providers []RouteProvider, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Coordinator{providers: providers, timeout: timeout}
}

// Search runs the fallback chain for one canonical query. There are no
// retries within a provider attempt; a failed attempt is final for that
// provider. Cancellation of ctx aborts the chain promptly.
func (c *Coordinator) Search(ctx context.Context, q models.RouteQuery) SearchOutcome {
	outcome := SearchOutcome{State: StateNotStarted}

	sawEmpty := false
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			outcome.Failures = append(outcome.Failures, ProviderFailure{
				Provider: p.Name(),
				Error:    err.Error(),
			})
			break
		}

		outcome.State = StateTrying

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		results, err := p.Search(attemptCtx, q)
		cancel()

		if err != nil {
			if errors.Is(err, config.ErrNoCredential) || errors.Is(err, ErrUnsupportedQuery) {
				log.Printf("transit: skipping provider %s: %v", p.Name(), err)
				outcome.Skipped = append(outcome.Skipped, p.Name())
				continue
			}
			log.Printf("transit: provider %s failed: %v", p.Name(), err)
			outcome.Failures = append(outcome.Failures, ProviderFailure{
				Provider: p.Name(),
				Error:    err.Error(),
			})
			continue
		}

		if len(results) == 0 {
			// A gap in one feed does not mean no route exists
			log.Printf("transit: provider %s returned no routes, trying next", p.Name())
			sawEmpty = true
			continue
		}

		outcome.State = StateSucceeded
		outcome.Provider = p.Name()
		outcome.Results = results
		return outcome
	}

	if sawEmpty || len(outcome.Failures) == 0 {
		outcome.State = StateExhaustedEmpty
	} else {
		outcome.State = StateExhaustedError
	}
	return outcome
}
