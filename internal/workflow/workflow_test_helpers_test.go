package workflow

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/commerce-messaging/internal/activity"
	"github.com/edvin/commerce-messaging/internal/model"
)

// registerAll registers activity structs and named workflows with the test
// environment. Activities are mocked via OnActivity, but the framework still
// needs the type information to (de)serialize parameters and results.
func registerAll(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Messaging{})
	env.RegisterActivity(&activity.Lookup{})
	env.RegisterActivity(&activity.Invocations{})
	for name, fn := range Definitions() {
		env.RegisterWorkflowWithOptions(fn, workflow.RegisterOptions{Name: string(name)})
	}
}

// bookkeeping records the lifecycle activities invoked during a test run.
type bookkeeping struct {
	mu       sync.Mutex
	running  []activity.MarkRunningParams
	outcomes map[string]model.Result
}

func mockBookkeeping(env *testsuite.TestWorkflowEnvironment) *bookkeeping {
	b := &bookkeeping{outcomes: make(map[string]model.Result)}
	env.OnActivity(activity.NameMarkInvocationRunning, mock.Anything, mock.Anything).
		Return(func(_ context.Context, p activity.MarkRunningParams) error {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.running = append(b.running, p)
			return nil
		})
	env.OnActivity(activity.NameRecordInvocationOutcome, mock.Anything, mock.Anything).
		Return(func(_ context.Context, p activity.RecordOutcomeParams) (*activity.RecordOutcomeResult, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.outcomes[p.WorkflowID] = p.Result
			return &activity.RecordOutcomeResult{Written: true}, nil
		})
	return b
}

func (b *bookkeeping) outcome(workflowID string) (model.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.outcomes[workflowID]
	return r, ok
}

func entity(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var (
	testOrg     = model.OrgContext{ID: "org-1", Name: "Sunny Shop"}
	testChannel = &model.ChannelConfig{ID: "ch-1", OrgID: "org-1", Provider: "whatsapp", Sender: "+15550000000", Active: true}
)

func testTemplate(kind, body string) *model.Template {
	return &model.Template{ID: "tmpl-" + kind, OrgID: "org-1", Kind: kind, Body: body}
}

// businessActivities are the activities with external side effects or reads;
// validation failures must not reach any of them.
var businessActivities = []string{
	activity.NameGetChannelConfig,
	activity.NameGetTemplate,
	activity.NameLookupCustomer,
	activity.NameFetchCatalogue,
	activity.NameSendMessage,
}
