package workflow

import (
	"fmt"
	"strings"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
)

// fanOut describes one bulk send expanded into recipient children.
type fanOut struct {
	ParentType model.WorkflowType
	EntityID   string
	OrgID      string
	Channel    model.ChannelConfig
	Template   model.Template
	Variables  map[string]string
	Recipients []model.Recipient
	Options    model.RunOptions
}

// runFanOut starts one RecipientMessageWorkflow per recipient, at most
// Options.Concurrency() at a time, and aggregates their results. A failed
// recipient never affects the others; the fan-out fails if any recipient did.
func runFanOut(ctx workflow.Context, f fanOut) (model.FanOutData, error) {
	logger := workflow.GetLogger(ctx)
	info := workflow.GetInfo(ctx)

	outcomes := make([]model.RecipientOutcome, len(f.Recipients))
	wg := workflow.NewWaitGroup(ctx)
	sem := workflow.NewSemaphore(ctx, int64(f.Options.Concurrency()))

	for i, r := range f.Recipients {
		childID := engine.ChildWorkflowID(string(f.ParentType), f.EntityID, r.ID)
		outcomes[i] = model.RecipientOutcome{RecipientID: r.ID, WorkflowID: childID}

		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i].Error = "fan-out interrupted: " + err.Error()
			continue
		}
		wg.Add(1)

		workflow.Go(ctx, func(gCtx workflow.Context) {
			defer wg.Done()
			defer sem.Release(1)

			childCtx := workflow.WithChildOptions(gCtx, workflow.ChildWorkflowOptions{
				WorkflowID:        childID,
				TaskQueue:         info.TaskQueueName,
				ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON,
			})

			var res model.Result
			err := workflow.ExecuteChildWorkflow(childCtx, string(model.WorkflowRecipientMessage), model.RecipientInput{
				ParentWorkflowID: info.WorkflowExecution.ID,
				ParentType:       f.ParentType,
				OrgID:            f.OrgID,
				Recipient:        r,
				Channel:          f.Channel,
				Template:         f.Template,
				Variables:        f.Variables,
				Options:          f.Options,
			}).Get(gCtx, &res)
			if err != nil {
				logger.Error("recipient child failed", "workflowId", childID, "error", err)
				outcomes[i].Error = engine.ErrorMessage(err)
				return
			}

			outcomes[i].Success = res.Success
			if !res.Success {
				outcomes[i].Error = res.Error
				return
			}
			var data model.MessageData
			if err := res.DecodeData(&data); err == nil {
				outcomes[i].MessageID = data.MessageID
			}
		})
	}

	wg.Wait(ctx)

	agg := model.FanOutData{Total: len(outcomes), Recipients: outcomes}
	var failed []string
	for _, o := range outcomes {
		if o.Success {
			agg.Sent++
			continue
		}
		agg.Failed++
		failed = append(failed, o.RecipientID)
	}

	if agg.Failed > 0 {
		return agg, fmt.Errorf("%d of %d recipients failed: %s", agg.Failed, agg.Total, strings.Join(failed, ", "))
	}
	return agg, nil
}
