package worker

import (
	"fmt"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/workflow"
)

// Deps are the activity receivers a worker registers.
type Deps struct {
	Messaging   *activity.Messaging
	Lookup      *activity.Lookup
	Invocations *activity.Invocations
}

// NewRegistry builds the handlers served on queue: the workflow type bound to
// the queue, the recipient child when that type fans out, and every activity.
func NewRegistry(queue string, deps Deps) (*engine.Registry, error) {
	if deps.Messaging == nil || deps.Lookup == nil || deps.Invocations == nil {
		return nil, fmt.Errorf("worker registry: all activity dependencies are required")
	}

	var wfType model.WorkflowType
	for _, t := range model.StartableWorkflowTypes {
		if t.TaskQueue() == queue {
			wfType = t
			break
		}
	}
	if wfType == "" {
		return nil, fmt.Errorf("worker registry: no workflow is bound to task queue %q", queue)
	}

	defs := workflow.Definitions()
	types := []model.WorkflowType{wfType}
	if wfType.FansOut() {
		types = append(types, model.WorkflowRecipientMessage)
	}

	reg := engine.NewRegistry()
	for _, t := range types {
		if err := reg.AddWorkflow(string(t), defs[t]); err != nil {
			return nil, err
		}
	}

	activities := map[string]interface{}{
		activity.NameSendMessage:             deps.Messaging.SendMessage,
		activity.NameGetChannelConfig:        deps.Lookup.GetChannelConfig,
		activity.NameGetTemplate:             deps.Lookup.GetTemplate,
		activity.NameLookupCustomer:          deps.Lookup.LookupCustomer,
		activity.NameFetchCatalogue:          deps.Lookup.FetchCatalogue,
		activity.NameMarkInvocationRunning:   deps.Invocations.MarkInvocationRunning,
		activity.NameRecordInvocationOutcome: deps.Invocations.RecordInvocationOutcome,
	}
	for name, fn := range activities {
		if err := reg.AddActivity(name, fn); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
