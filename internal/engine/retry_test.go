package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordSleeps(sleeps *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	})
}

func TestExecute_SucceedsOnThirdAttempt(t *testing.T) {
	var calls int32
	var sleeps []time.Duration

	v, err := Execute(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", Transient("send", errors.New("503 service unavailable"))
		}
		return "msg-1", nil
	}, recordSleeps(&sleeps))

	require.NoError(t, err)
	assert.Equal(t, "msg-1", v)
	assert.Equal(t, int32(3), calls)
	require.Len(t, sleeps, 2)
	for i, d := range sleeps {
		assert.GreaterOrEqual(t, d, DefaultInitialInterval)
		if i > 0 {
			assert.GreaterOrEqual(t, d, sleeps[i-1])
		}
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestExecute_FatalStopsImmediately(t *testing.T) {
	var calls int32
	var sleeps []time.Duration

	_, err := Execute(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", Fatal("send", errors.New("channel returned 400"))
	}, recordSleeps(&sleeps))

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(1), calls)
	assert.Empty(t, sleeps)
}

func TestExecute_TransientExhaustsAttempts(t *testing.T) {
	var calls int32
	var sleeps []time.Duration

	_, err := Execute(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, Transient("send", errors.New("channel returned 503"))
	}, WithName("SendMessage"), recordSleeps(&sleeps))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "SendMessage: 3 attempts exhausted")
	assert.Equal(t, int32(DefaultMaxAttempts), calls)
	assert.Len(t, sleeps, DefaultMaxAttempts-1)
}

func TestExecute_UnclassifiedErrorIsRetried(t *testing.T) {
	var calls int32
	policy := RetryPolicy{MaxAttempts: 2}

	_, err := Execute(context.Background(), policy, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("connection reset")
	}, WithSleep(func(context.Context, time.Duration) error { return nil }))

	require.Error(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestExecute_AttemptTimeoutIsTransient(t *testing.T) {
	var calls int32
	policy := RetryPolicy{MaxAttempts: 2, StartToCloseTimeout: 20 * time.Millisecond}

	_, err := Execute(context.Background(), policy, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return 0, ctx.Err()
	}, WithSleep(func(context.Context, time.Duration) error { return nil }))

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Contains(t, err.Error(), "start-to-close timeout")
	assert.Equal(t, int32(2), calls)
}

func TestExecute_AttemptIgnoringContextIsAbandoned(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	policy := RetryPolicy{MaxAttempts: 1, StartToCloseTimeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := Execute(context.Background(), policy, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32

	_, err := Execute(ctx, DefaultRetryPolicy(), func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls)
}

func TestExecute_ObserverSeesEveryAttempt(t *testing.T) {
	var attempts []Attempt
	var calls int

	_, err := Execute(context.Background(), DefaultRetryPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Transient("lookup", errors.New("timeout"))
		}
		return 7, nil
	},
		WithName("GetChannelConfig"),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithObserver(func(a Attempt) { attempts = append(attempts, a) }),
	)

	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "GetChannelConfig", attempts[0].Activity)
	assert.Equal(t, 1, attempts[0].Number)
	assert.Equal(t, OutcomeTransient, attempts[0].Outcome)
	assert.Equal(t, time.Second, attempts[0].Backoff)
	assert.Equal(t, 2, attempts[1].Number)
	assert.Equal(t, OutcomeSuccess, attempts[1].Outcome)
	assert.Equal(t, DefaultMaxAttempts, attempts[1].MaxAttempts)
}
