package activity

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/events"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

// Invocations contains the bookkeeping activities that move an invocation
// through its lifecycle in the store.
type Invocations struct {
	store     store.InvocationStore
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewInvocations creates an Invocations activity struct. A nil publisher
// disables outcome events.
func NewInvocations(s store.InvocationStore, publisher events.Publisher, logger zerolog.Logger) *Invocations {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Invocations{
		store:     s,
		publisher: publisher,
		logger:    logger.With().Str("component", "invocation-activity").Logger(),
	}
}

type MarkRunningParams struct {
	WorkflowID   string             `json:"workflowId"`
	WorkflowType model.WorkflowType `json:"workflowType"`
	TaskQueue    string             `json:"taskQueue"`
	ParentID     string             `json:"parentId,omitempty"`
	Args         json.RawMessage    `json:"args,omitempty"`
}

// MarkInvocationRunning records that a worker picked the invocation up.
// Fan-out children have no gateway record and are created here.
func (a *Invocations) MarkInvocationRunning(ctx context.Context, params MarkRunningParams) error {
	inv := &model.Invocation{
		WorkflowID:   params.WorkflowID,
		WorkflowType: params.WorkflowType,
		TaskQueue:    params.TaskQueue,
		Args:         params.Args,
	}
	if params.ParentID != "" {
		parent := params.ParentID
		inv.ParentID = &parent
	}
	if err := a.store.MarkRunning(ctx, inv); err != nil {
		metrics.ActivityExecutions.WithLabelValues(NameMarkInvocationRunning, string(engine.OutcomeTransient)).Inc()
		return engine.TemporalError(engine.Transient("mark running", err))
	}
	metrics.ActivityExecutions.WithLabelValues(NameMarkInvocationRunning, string(engine.OutcomeSuccess)).Inc()
	return nil
}

type RecordOutcomeParams struct {
	WorkflowID   string             `json:"workflowId"`
	WorkflowType model.WorkflowType `json:"workflowType"`
	ParentID     string             `json:"parentId,omitempty"`
	Result       model.Result       `json:"result"`
}

type RecordOutcomeResult struct {
	Written bool `json:"written"`
}

// RecordInvocationOutcome writes the terminal state once. Events are
// published only by the write that wins; publish failures are logged.
func (a *Invocations) RecordInvocationOutcome(ctx context.Context, params RecordOutcomeParams) (*RecordOutcomeResult, error) {
	written, err := a.store.Complete(ctx, params.WorkflowID, &params.Result)
	if err != nil {
		metrics.ActivityExecutions.WithLabelValues(NameRecordInvocationOutcome, string(engine.OutcomeTransient)).Inc()
		return nil, engine.TemporalError(engine.Transient("record outcome", err))
	}
	metrics.ActivityExecutions.WithLabelValues(NameRecordInvocationOutcome, string(engine.OutcomeSuccess)).Inc()

	if !written {
		a.logger.Debug().Str("workflow_id", params.WorkflowID).Msg("invocation already terminal, outcome not rewritten")
		return &RecordOutcomeResult{Written: false}, nil
	}

	status := model.StatusFailed
	if params.Result.Success {
		status = model.StatusCompleted
	}
	metrics.InvocationOutcomes.WithLabelValues(string(params.WorkflowType), string(status)).Inc()

	ev := events.NewInvocationEvent(params.WorkflowID, params.WorkflowType, params.ParentID, &params.Result)
	if err := a.publisher.Publish(ctx, ev); err != nil {
		a.logger.Warn().Err(err).Str("workflow_id", params.WorkflowID).Msg("publish outcome event")
	}

	a.logger.Info().
		Str("workflow_id", params.WorkflowID).
		Str("status", string(status)).
		Msg("RecordInvocationOutcome")
	return &RecordOutcomeResult{Written: true}, nil
}
