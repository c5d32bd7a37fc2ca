package engine

import (
	"math"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RetryPolicy describes how an activity is retried. It is plain data: the same
// value drives Execute in-process and the Temporal activity options built by
// ActivityOptions, so a policy can be loaded from config and passed through
// workflow arguments unchanged.
type RetryPolicy struct {
	MaxAttempts         int           `json:"maxAttempts" yaml:"maxAttempts"`
	InitialInterval     time.Duration `json:"initialInterval" yaml:"initialInterval"`
	MaximumInterval     time.Duration `json:"maximumInterval" yaml:"maximumInterval"`
	BackoffCoefficient  float64       `json:"backoffCoefficient" yaml:"backoffCoefficient"`
	StartToCloseTimeout time.Duration `json:"startToCloseTimeout" yaml:"startToCloseTimeout"`
}

const (
	DefaultMaxAttempts         = 3
	DefaultInitialInterval     = time.Second
	DefaultMaximumInterval     = 10 * time.Second
	DefaultBackoffCoefficient  = 2.0
	DefaultStartToCloseTimeout = time.Minute
)

// DefaultRetryPolicy returns the policy applied to activities that have no
// explicit override.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         DefaultMaxAttempts,
		InitialInterval:     DefaultInitialInterval,
		MaximumInterval:     DefaultMaximumInterval,
		BackoffCoefficient:  DefaultBackoffCoefficient,
		StartToCloseTimeout: DefaultStartToCloseTimeout,
	}
}

// GatewayRetryPolicy bounds the gateway's own calls to the workflow runtime.
// It never re-runs a workflow, it only re-sends the start/observe request.
func GatewayRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         2,
		InitialInterval:     200 * time.Millisecond,
		MaximumInterval:     time.Second,
		BackoffCoefficient:  2.0,
		StartToCloseTimeout: 10 * time.Second,
	}
}

// WithDefaults returns a copy with every zero field replaced by its default.
func (p RetryPolicy) WithDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}
	if p.MaximumInterval <= 0 {
		p.MaximumInterval = DefaultMaximumInterval
	}
	if p.MaximumInterval < p.InitialInterval {
		p.MaximumInterval = p.InitialInterval
	}
	if p.BackoffCoefficient < 1 {
		p.BackoffCoefficient = DefaultBackoffCoefficient
	}
	if p.StartToCloseTimeout <= 0 {
		p.StartToCloseTimeout = DefaultStartToCloseTimeout
	}
	return p
}

// Merge overlays the non-zero fields of o onto p.
func (p RetryPolicy) Merge(o RetryPolicy) RetryPolicy {
	if o.MaxAttempts > 0 {
		p.MaxAttempts = o.MaxAttempts
	}
	if o.InitialInterval > 0 {
		p.InitialInterval = o.InitialInterval
	}
	if o.MaximumInterval > 0 {
		p.MaximumInterval = o.MaximumInterval
	}
	if o.BackoffCoefficient > 0 {
		p.BackoffCoefficient = o.BackoffCoefficient
	}
	if o.StartToCloseTimeout > 0 {
		p.StartToCloseTimeout = o.StartToCloseTimeout
	}
	return p
}

// Backoff returns the delay between failed attempt n (1-based) and the next
// one: InitialInterval * BackoffCoefficient^(n-1), capped at MaximumInterval.
func (p RetryPolicy) Backoff(n int) time.Duration {
	p = p.WithDefaults()
	if n < 1 {
		n = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.BackoffCoefficient, float64(n-1))
	if d > float64(p.MaximumInterval) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaximumInterval
	}
	return time.Duration(d)
}

// Temporal converts the policy to the SDK representation. Fatal and
// validation failures are never retried by the server.
func (p RetryPolicy) Temporal() *temporal.RetryPolicy {
	p = p.WithDefaults()
	return &temporal.RetryPolicy{
		InitialInterval:        p.InitialInterval,
		BackoffCoefficient:     p.BackoffCoefficient,
		MaximumInterval:        p.MaximumInterval,
		MaximumAttempts:        int32(p.MaxAttempts),
		NonRetryableErrorTypes: []string{ErrTypeFatal, ErrTypeValidation},
	}
}

// ActivityOptions builds the workflow activity options for this policy.
func (p RetryPolicy) ActivityOptions() workflow.ActivityOptions {
	p = p.WithDefaults()
	return workflow.ActivityOptions{
		StartToCloseTimeout: p.StartToCloseTimeout,
		RetryPolicy:         p.Temporal(),
	}
}
