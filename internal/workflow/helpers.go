package workflow

import (
	"encoding/json"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
)

// activityCtx returns a context running the named activity with its default
// policy overlaid by any override carried in the run options.
func activityCtx(ctx workflow.Context, opts model.RunOptions, name string) workflow.Context {
	p := opts.Policy(name, activity.Policy(name))
	return workflow.WithActivityOptions(ctx, p.ActivityOptions())
}

// invocation describes the run being wrapped by run.
type invocation struct {
	Type     model.WorkflowType
	EntityID string
	ParentID string
	Args     any
	Options  model.RunOptions
	// Failure is the result message used when the body fails for a reason
	// other than validation.
	Failure string
	// Validate checks the input before anything is recorded as running. It
	// must be deterministic and must not call activities.
	Validate func() error
}

// outcome is what a workflow body produces. Data is kept on failure too, so
// a partial fan-out still reports its per-recipient results.
type outcome struct {
	Message string
	Data    any
}

// run wraps a workflow body with the invocation lifecycle:
// validate, mark running, body, optional settle wait, record outcome.
// Invalid input skips straight to the outcome. Body failures are folded into
// the returned Result; the workflow itself never fails.
func run(ctx workflow.Context, inv invocation, body func(ctx workflow.Context) (outcome, error)) (*model.Result, error) {
	logger := workflow.GetLogger(ctx)
	workflowID := workflow.GetInfo(ctx).WorkflowExecution.ID

	res := &model.Result{
		EntityID:   inv.EntityID,
		WorkflowID: workflowID,
	}
	res.Timestamps.StartedAt = workflow.Now(ctx)

	if inv.Validate != nil {
		if err := inv.Validate(); err != nil {
			res.Success = false
			res.Message = "Validation failed"
			res.Error = engine.ErrorMessage(err)
			logger.Info("workflow input rejected", "workflowId", workflowID, "error", res.Error)
			return record(ctx, inv, res), nil
		}
	}

	markRunning(ctx, inv)

	out, err := body(ctx)
	if err != nil {
		res.Success = false
		res.Error = engine.ErrorMessage(err)
		res.Message = inv.Failure
		if engine.IsValidation(err) {
			res.Message = "Validation failed"
		}
		logger.Info("workflow body failed", "workflowId", workflowID, "error", res.Error)
	} else {
		res.Success = true
		res.Message = out.Message
	}
	if out.Data != nil {
		if err := res.SetData(out.Data); err != nil {
			res.Success = false
			res.Message = inv.Failure
			res.Error = "encode result data: " + err.Error()
		}
	}

	if d := inv.Options.SettleDelay; d > 0 {
		if err := workflow.Sleep(ctx, d); err != nil {
			logger.Warn("settle wait interrupted", "workflowId", workflowID, "error", err)
		}
	}

	return record(ctx, inv, res), nil
}

func markRunning(ctx workflow.Context, inv invocation) {
	info := workflow.GetInfo(ctx)
	args, err := json.Marshal(inv.Args)
	if err != nil {
		args = nil
	}
	err = workflow.ExecuteActivity(activityCtx(ctx, inv.Options, activity.NameMarkInvocationRunning),
		activity.NameMarkInvocationRunning, activity.MarkRunningParams{
			WorkflowID:   info.WorkflowExecution.ID,
			WorkflowType: inv.Type,
			TaskQueue:    info.TaskQueueName,
			ParentID:     inv.ParentID,
			Args:         args,
		}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("mark invocation running failed", "workflowId", info.WorkflowExecution.ID, "error", err)
	}
}

// record stamps the completion time and writes the terminal outcome.
func record(ctx workflow.Context, inv invocation, res *model.Result) *model.Result {
	res.Timestamps.CompletedAt = workflow.Now(ctx)

	err := workflow.ExecuteActivity(activityCtx(ctx, inv.Options, activity.NameRecordInvocationOutcome),
		activity.NameRecordInvocationOutcome, activity.RecordOutcomeParams{
			WorkflowID:   res.WorkflowID,
			WorkflowType: inv.Type,
			ParentID:     inv.ParentID,
			Result:       *res,
		}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("record invocation outcome failed", "workflowId", res.WorkflowID, "error", err)
	}
	return res
}

// lookupChannel fetches the organization's channel and the template of kind.
func lookupChannel(ctx workflow.Context, opts model.RunOptions, orgID, kind string) (model.ChannelConfig, model.Template, error) {
	var ch model.ChannelConfig
	err := workflow.ExecuteActivity(activityCtx(ctx, opts, activity.NameGetChannelConfig),
		activity.NameGetChannelConfig, orgID).Get(ctx, &ch)
	if err != nil {
		return ch, model.Template{}, err
	}

	var tmpl model.Template
	err = workflow.ExecuteActivity(activityCtx(ctx, opts, activity.NameGetTemplate),
		activity.NameGetTemplate, activity.TemplateQuery{OrgID: orgID, Kind: kind}).Get(ctx, &tmpl)
	return ch, tmpl, err
}

// sendMessage runs the SendMessage activity with reference as the
// idempotency key.
func sendMessage(ctx workflow.Context, opts model.RunOptions, params activity.SendMessageParams) (model.MessageData, error) {
	var sent activity.SendMessageResult
	err := workflow.ExecuteActivity(activityCtx(ctx, opts, activity.NameSendMessage),
		activity.NameSendMessage, params).Get(ctx, &sent)
	if err != nil {
		return model.MessageData{}, err
	}
	return model.MessageData{MessageID: sent.MessageID, Status: sent.Status}, nil
}
