package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/commerce-messaging/internal/engine"
)

// ActivityInterceptor is a worker interceptor that classifies any activity
// error not already typed as a transient application error, and logs every
// failed attempt with its duration.
type ActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
	logger zerolog.Logger
}

func NewActivityInterceptor(logger zerolog.Logger) *ActivityInterceptor {
	return &ActivityInterceptor{logger: logger.With().Str("component", "activity-interceptor").Logger()}
}

func (a *ActivityInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &activityInboundInterceptor{next: next, logger: a.logger}
}

type activityInboundInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next   interceptor.ActivityInboundInterceptor
	logger zerolog.Logger
}

func (a *activityInboundInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return a.next.Init(outbound)
}

func (a *activityInboundInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	start := time.Now()
	result, err := a.next.ExecuteActivity(ctx, in)
	if err == nil {
		return result, nil
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() == "" {
		err = engine.TemporalError(err)
	}

	ev := a.logger.Warn().Err(err).Dur("duration", time.Since(start))
	if activity.IsActivity(ctx) {
		info := activity.GetInfo(ctx)
		ev = ev.Str("activity", info.ActivityType.Name).
			Str("workflow_id", info.WorkflowExecution.ID).
			Int32("attempt", info.Attempt)
	}
	ev.Msg("activity attempt failed")
	return result, err
}
