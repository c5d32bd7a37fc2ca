package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/model"
)

// RecipientMessageWorkflow delivers one fan-out message. It is its own
// invocation with its own idempotency key, so it is retried and recorded
// independently of its siblings.
func RecipientMessageWorkflow(ctx workflow.Context, in model.RecipientInput) (*model.Result, error) {
	inv := invocation{
		Type:     model.WorkflowRecipientMessage,
		EntityID: in.Recipient.ID,
		ParentID: in.ParentWorkflowID,
		Args:     in,
		Options:  in.Options,
		Failure:  "Recipient message failed",
	}

	return run(ctx, inv, func(ctx workflow.Context) (outcome, error) {
		to := in.Recipient.Phone
		name := in.Recipient.Name
		if to == "" {
			var c model.Customer
			err := workflow.ExecuteActivity(activityCtx(ctx, in.Options, activity.NameLookupCustomer),
				activity.NameLookupCustomer, activity.CustomerQuery{OrgID: in.OrgID, CustomerID: in.Recipient.ID}).Get(ctx, &c)
			if err != nil {
				return outcome{}, err
			}
			to = c.Phone
			name = firstNonEmpty(name, c.Name)
		}

		vars := make(map[string]string, len(in.Variables)+1)
		for k, v := range in.Variables {
			vars[k] = v
		}
		vars["recipientName"] = name

		sent, err := sendMessage(ctx, in.Options, activity.SendMessageParams{
			To:        to,
			Template:  in.Template,
			Variables: vars,
			Channel:   in.Channel,
			Reference: workflow.GetInfo(ctx).WorkflowExecution.ID,
		})
		if err != nil {
			return outcome{}, err
		}
		return outcome{Message: "Message sent", Data: sent}, nil
	})
}
