package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(2))
	assert.Equal(t, 4*time.Second, p.Backoff(3))
	assert.Equal(t, 8*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(5))
	assert.Equal(t, 10*time.Second, p.Backoff(50))
	assert.Equal(t, time.Second, p.Backoff(0))
}

func TestRetryPolicy_BackoffIsMonotonic(t *testing.T) {
	p := RetryPolicy{InitialInterval: 300 * time.Millisecond, MaximumInterval: 7 * time.Second, BackoffCoefficient: 1.5}

	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := p.Backoff(n)
		assert.GreaterOrEqual(t, d, prev)
		assert.GreaterOrEqual(t, d, p.InitialInterval)
		assert.LessOrEqual(t, d, p.MaximumInterval)
		prev = d
	}
}

func TestRetryPolicy_WithDefaults(t *testing.T) {
	p := RetryPolicy{}.WithDefaults()

	assert.Equal(t, DefaultRetryPolicy(), p)
}

func TestRetryPolicy_WithDefaults_MaxBelowInitial(t *testing.T) {
	p := RetryPolicy{InitialInterval: 5 * time.Second, MaximumInterval: time.Second}.WithDefaults()

	assert.Equal(t, 5*time.Second, p.MaximumInterval)
}

func TestRetryPolicy_Merge(t *testing.T) {
	p := DefaultRetryPolicy().Merge(RetryPolicy{MaxAttempts: 5, StartToCloseTimeout: 2 * time.Minute})

	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 2*time.Minute, p.StartToCloseTimeout)
	assert.Equal(t, DefaultInitialInterval, p.InitialInterval)
	assert.Equal(t, DefaultMaximumInterval, p.MaximumInterval)
}

func TestRetryPolicy_Temporal(t *testing.T) {
	rp := DefaultRetryPolicy().Temporal()

	assert.Equal(t, int32(3), rp.MaximumAttempts)
	assert.Equal(t, time.Second, rp.InitialInterval)
	assert.Equal(t, 10*time.Second, rp.MaximumInterval)
	assert.Equal(t, 2.0, rp.BackoffCoefficient)
	assert.ElementsMatch(t, []string{ErrTypeFatal, ErrTypeValidation}, rp.NonRetryableErrorTypes)
}

func TestRetryPolicy_ActivityOptions(t *testing.T) {
	ao := RetryPolicy{StartToCloseTimeout: 2 * time.Minute}.ActivityOptions()

	assert.Equal(t, 2*time.Minute, ao.StartToCloseTimeout)
	assert.NotNil(t, ao.RetryPolicy)
	assert.Equal(t, int32(DefaultMaxAttempts), ao.RetryPolicy.MaximumAttempts)
}

func TestGatewayRetryPolicy(t *testing.T) {
	p := GatewayRetryPolicy()

	assert.Equal(t, 2, p.MaxAttempts)
	assert.LessOrEqual(t, p.MaximumInterval, time.Second)
}
