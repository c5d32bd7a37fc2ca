package workflow

import "github.com/edvin/commerce-messaging/internal/model"

// Definitions maps every workflow type to its implementation. Workflows are
// registered and started by these names.
func Definitions() map[model.WorkflowType]interface{} {
	return map[model.WorkflowType]interface{}{
		model.WorkflowOrderConfirmation:  OrderConfirmationWorkflow,
		model.WorkflowCatalogueMessaging: CatalogueMessagingWorkflow,
		model.WorkflowBackInStock:        BackInStockWorkflow,
		model.WorkflowRecipientMessage:   RecipientMessageWorkflow,
	}
}
