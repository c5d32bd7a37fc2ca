package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/model"
)

// BackInStockWorkflow notifies every subscriber of a restocked product.
func BackInStockWorkflow(ctx workflow.Context, in model.StartInput) (*model.Result, error) {
	entityID, _ := model.EntityID(in.BusinessEntity)
	var p *model.Restock
	inv := invocation{
		Type:     model.WorkflowBackInStock,
		EntityID: entityID,
		Args:     in,
		Options:  in.Options,
		Failure:  "Back-in-stock notification failed",
		Validate: func() (err error) {
			if p, err = model.DecodeRestock(in.BusinessEntity); err != nil {
				return err
			}
			return model.ValidateOrg(in.OrgContext)
		},
	}

	return run(ctx, inv, func(ctx workflow.Context) (outcome, error) {
		ch, tmpl, err := lookupChannel(ctx, in.Options, in.OrgContext.ID, model.TemplateBackInStock)
		if err != nil {
			return outcome{}, err
		}

		agg, err := runFanOut(ctx, fanOut{
			ParentType: model.WorkflowBackInStock,
			EntityID:   p.ID,
			OrgID:      in.OrgContext.ID,
			Channel:    ch,
			Template:   tmpl,
			Variables: map[string]string{
				"productName": p.ProductName,
				"productUrl":  p.ProductURL,
				"orgName":     in.OrgContext.Name,
			},
			Recipients: p.Subscribers,
			Options:    in.Options,
		})
		if err != nil {
			return outcome{Data: agg}, err
		}
		return outcome{Message: fmt.Sprintf("Back-in-stock notice sent to %d subscribers", agg.Sent), Data: agg}, nil
	})
}
