package job

import (
	"errors"
	"time"
)

// DefaultStaleAfter is how long a lease may be held before the sweep reclaims it.
const DefaultStaleAfter = 5 * time.Minute

// ErrInvalidStaleAfter indicates the configured stale threshold is not positive.
var ErrInvalidStaleAfter = errors.New("stale lease threshold must be positive")

// LeaseSource identifies how a stale threshold was resolved.
type LeaseSource string

const (
	// LeaseSourceExplicit indicates the caller supplied a positive duration.
	LeaseSourceExplicit LeaseSource = "explicit"
	// LeaseSourceDefault indicates the policy default was used.
	LeaseSourceDefault LeaseSource = "default"
	// LeaseSourceClamped indicates the requested duration was raised to one second.
	LeaseSourceClamped LeaseSource = "clamped"
)

// LeasePolicy decides when a held lease counts as abandoned.
type LeasePolicy struct {
	staleAfter time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided default stale threshold.
func NewLeasePolicy(staleAfter time.Duration) (*LeasePolicy, error) {
	if staleAfter <= 0 {
		return nil, ErrInvalidStaleAfter
	}
	return &LeasePolicy{staleAfter: staleAfter}, nil
}

// StaleAfter returns the configured threshold, falling back to DefaultStaleAfter.
func (p *LeasePolicy) StaleAfter() time.Duration {
	if p == nil || p.staleAfter <= 0 {
		return DefaultStaleAfter
	}
	return p.staleAfter
}

// LeaseDecision captures the outcome of resolving a stale threshold request.
type LeaseDecision struct {
	StaleAfter time.Duration
	Source     LeaseSource
	Requested  time.Duration
}

// UsedDefault reports whether the policy fell back to its default.
func (d LeaseDecision) UsedDefault() bool {
	return d.Source == LeaseSourceDefault
}

// Clamped reports whether the request was raised to the minimum.
func (d LeaseDecision) Clamped() bool {
	return d.Source == LeaseSourceClamped
}

// Resolve normalises a requested threshold to whole seconds. Zero selects the default.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	decision := LeaseDecision{Requested: request}

	switch {
	case request == 0:
		decision.StaleAfter = p.StaleAfter()
		decision.Source = LeaseSourceDefault
	case request < time.Second:
		decision.StaleAfter = time.Second
		decision.Source = LeaseSourceClamped
	default:
		decision.StaleAfter = request.Truncate(time.Second)
		decision.Source = LeaseSourceExplicit
	}
	return decision
}

// Cutoff returns the lock time before which a lease is stale.
func (p *LeasePolicy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.StaleAfter())
}
