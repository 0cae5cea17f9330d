package resilience

import (
	"cmp"
	"time"
)

// Policy shapes every breaker in a Breakers set. Nothing here retries a call.
type Policy struct {
	Enabled bool
	// MinRequests is the number of calls seen before the failure ratio is judged.
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
	// HalfOpenProbes bounds the calls let through while the circuit is half-open.
	HalfOpenProbes uint32
}

func DefaultPolicy() Policy {
	return Policy{
		Enabled:        true,
		MinRequests:    5,
		FailureRatio:   0.6,
		OpenTimeout:    30 * time.Second,
		HalfOpenProbes: 1,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	p.MinRequests = cmp.Or(p.MinRequests, def.MinRequests)
	p.HalfOpenProbes = cmp.Or(p.HalfOpenProbes, def.HalfOpenProbes)
	if p.OpenTimeout <= 0 {
		p.OpenTimeout = def.OpenTimeout
	}
	if p.FailureRatio <= 0 || p.FailureRatio > 1 {
		p.FailureRatio = def.FailureRatio
	}
	return p
}
