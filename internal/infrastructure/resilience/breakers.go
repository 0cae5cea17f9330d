package resilience

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"
)

// Verdict tells a breaker how to count an operation error.
type Verdict uint8

const (
	// Ignore leaves the counts untouched: caller cancellation, a rejected request.
	Ignore Verdict = iota
	// Fault counts toward opening the circuit.
	Fault
	// Outage counts like Fault and marks the error as temporary for callers.
	Outage
)

type Classifier func(error) Verdict

// TransitionFunc is told about every circuit state change.
type TransitionFunc func(operation, from, to string)

// Breakers keeps one circuit breaker per operation name. Calls are made at most once.
type Breakers struct {
	policy       Policy
	onTransition TransitionFunc

	mu       sync.Mutex
	circuits map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewBreakers(policy Policy) *Breakers {
	return &Breakers{
		policy:   policy.withDefaults(),
		circuits: map[string]*gobreaker.CircuitBreaker[struct{}]{},
	}
}

func (b *Breakers) OnTransition(fn TransitionFunc) *Breakers {
	b.onTransition = fn
	return b
}

// Do runs call behind the operation's circuit. A done context short-circuits before the call.
func (b *Breakers) Do(ctx context.Context, operation string, call func(context.Context) error, classify Classifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.policy.Enabled {
		return call(ctx)
	}
	if classify == nil {
		classify = countAll
	}

	circuit := b.circuit(operationName(operation), classify)
	_, err := circuit.Execute(func() (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	return err
}

// State is "closed" for an operation that has never run.
func (b *Breakers) State(operation string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if circuit, ok := b.circuits[operationName(operation)]; ok {
		return circuit.State().String()
	}
	return gobreaker.StateClosed.String()
}

func (b *Breakers) circuit(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if circuit, ok := b.circuits[operation]; ok {
		return circuit
	}

	policy := b.policy
	circuit := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: policy.HalfOpenProbes,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= policy.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || classify(err) == Ignore
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_state_changed", "operation", name, "from", from.String(), "to", to.String())
			if b.onTransition != nil {
				b.onTransition(name, from.String(), to.String())
			}
		},
	})
	b.circuits[operation] = circuit
	return circuit
}

// IsCircuitOpen reports a call rejected without being made.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func operationName(operation string) string {
	if op := strings.TrimSpace(operation); op != "" {
		return op
	}
	return "unknown"
}

func countAll(error) Verdict { return Fault }
