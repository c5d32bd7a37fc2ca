package workflow

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/model"
)

// CatalogueMessagingWorkflow broadcasts a catalogue to every recipient of the
// broadcast, one child invocation per recipient.
func CatalogueMessagingWorkflow(ctx workflow.Context, in model.StartInput) (*model.Result, error) {
	entityID, _ := model.EntityID(in.BusinessEntity)
	var b *model.Broadcast
	inv := invocation{
		Type:     model.WorkflowCatalogueMessaging,
		EntityID: entityID,
		Args:     in,
		Options:  in.Options,
		Failure:  "Catalogue broadcast failed",
		Validate: func() (err error) {
			if b, err = model.DecodeBroadcast(in.BusinessEntity); err != nil {
				return err
			}
			return model.ValidateOrg(in.OrgContext)
		},
	}

	return run(ctx, inv, func(ctx workflow.Context) (outcome, error) {
		var cat model.Catalogue
		err := workflow.ExecuteActivity(activityCtx(ctx, in.Options, activity.NameFetchCatalogue),
			activity.NameFetchCatalogue, activity.CatalogueQuery{OrgID: in.OrgContext.ID, CatalogueID: b.CatalogueID}).Get(ctx, &cat)
		if err != nil {
			return outcome{}, err
		}

		ch, tmpl, err := lookupChannel(ctx, in.Options, in.OrgContext.ID, model.TemplateCatalogue)
		if err != nil {
			return outcome{}, err
		}

		agg, err := runFanOut(ctx, fanOut{
			ParentType: model.WorkflowCatalogueMessaging,
			EntityID:   b.ID,
			OrgID:      in.OrgContext.ID,
			Channel:    ch,
			Template:   tmpl,
			Variables: map[string]string{
				"catalogueName": cat.Name,
				"catalogueUrl":  cat.URL,
				"productCount":  fmt.Sprint(len(cat.Products)),
				"message":       b.Message,
				"orgName":       in.OrgContext.Name,
			},
			Recipients: b.Recipients,
			Options:    in.Options,
		})
		if err != nil {
			return outcome{Data: agg}, err
		}
		return outcome{Message: fmt.Sprintf("Catalogue sent to %d recipients", agg.Sent), Data: agg}, nil
	})
}
