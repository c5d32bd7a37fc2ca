package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/model"
)

// OrderConfirmationWorkflow sends a single order confirmation to the
// customer who placed the order.
func OrderConfirmationWorkflow(ctx workflow.Context, in model.StartInput) (*model.Result, error) {
	entityID, _ := model.EntityID(in.BusinessEntity)
	var order *model.Order
	inv := invocation{
		Type:     model.WorkflowOrderConfirmation,
		EntityID: entityID,
		Args:     in,
		Options:  in.Options,
		Failure:  "Order confirmation failed",
		Validate: func() (err error) {
			if err = model.ValidateCustomer(in.Customer); err != nil {
				return err
			}
			if order, err = model.DecodeOrder(in.BusinessEntity); err != nil {
				return err
			}
			return model.ValidateOrg(in.OrgContext)
		},
	}

	return run(ctx, inv, func(ctx workflow.Context) (outcome, error) {
		ch, tmpl, err := lookupChannel(ctx, in.Options, in.OrgContext.ID, model.TemplateOrderConfirmation)
		if err != nil {
			return outcome{}, err
		}

		sent, err := sendMessage(ctx, in.Options, activity.SendMessageParams{
			To:        in.Customer.Phone,
			Template:  tmpl,
			Variables: orderVariables(order, in.Customer, in.OrgContext),
			Channel:   ch,
			Reference: workflow.GetInfo(ctx).WorkflowExecution.ID,
		})
		if err != nil {
			return outcome{}, err
		}

		return outcome{Message: "Order confirmation sent", Data: sent}, nil
	})
}

func orderVariables(o *model.Order, c *model.Customer, org model.OrgContext) map[string]string {
	return map[string]string{
		"orderId":      o.ID,
		"orderNumber":  firstNonEmpty(o.Number, o.ID),
		"total":        o.Total,
		"currency":     o.Currency,
		"customerName": c.Name,
		"orgName":      org.Name,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
