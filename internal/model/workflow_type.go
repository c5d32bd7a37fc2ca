package model

import "fmt"

// WorkflowType identifies a workflow definition. The value doubles as the
// registered workflow name and as the prefix of its idempotency keys.
type WorkflowType string

const (
	WorkflowOrderConfirmation  WorkflowType = "order-confirmation"
	WorkflowCatalogueMessaging WorkflowType = "catalogue-messaging"
	WorkflowBackInStock        WorkflowType = "back-in-stock"
	// WorkflowRecipientMessage is the per-recipient child of a fan-out.
	WorkflowRecipientMessage WorkflowType = "recipient-message"
)

// Task queue names shared by the gateway and the workers.
const (
	TaskQueueOrderConfirmation  = "order-confirmation-queue"
	TaskQueueCatalogueMessaging = "catalogue-messaging-queue"
	TaskQueueBackInStock        = "back-in-stock-queue"
)

// Mode selects whether the gateway waits for the terminal result.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// StartableWorkflowTypes lists the types accepted by the start endpoint.
var StartableWorkflowTypes = []WorkflowType{
	WorkflowOrderConfirmation,
	WorkflowCatalogueMessaging,
	WorkflowBackInStock,
}

// ParseWorkflowType returns the startable workflow type named s.
func ParseWorkflowType(s string) (WorkflowType, error) {
	for _, t := range StartableWorkflowTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown workflow type %q", s)
}

// TaskQueue returns the queue the workflow type is dispatched on.
func (t WorkflowType) TaskQueue() string {
	switch t {
	case WorkflowOrderConfirmation:
		return TaskQueueOrderConfirmation
	case WorkflowCatalogueMessaging:
		return TaskQueueCatalogueMessaging
	case WorkflowBackInStock:
		return TaskQueueBackInStock
	}
	return ""
}

// DefaultMode is how a start request is served when the caller does not pick:
// single order confirmations are awaited, broadcasts are fire-and-forget.
func (t WorkflowType) DefaultMode() Mode {
	if t == WorkflowOrderConfirmation {
		return ModeSync
	}
	return ModeAsync
}

// FansOut reports whether the workflow expands into recipient children.
func (t WorkflowType) FansOut() bool {
	return t == WorkflowCatalogueMessaging || t == WorkflowBackInStock
}

// ParseMode parses "sync" or "async"; empty yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch Mode(s) {
	case "":
		return def, nil
	case ModeSync, ModeAsync:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
