package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edvin/commerce-messaging/internal/model"
)

// Routing keys of invocation outcome events.
const (
	TypeInvocationCompleted = "invocation.completed"
	TypeInvocationFailed    = "invocation.failed"
)

// Event announces that an invocation reached a terminal state.
type Event struct {
	ID           string             `json:"id"`
	Type         string             `json:"type"`
	WorkflowID   string             `json:"workflowId"`
	WorkflowType model.WorkflowType `json:"workflowType"`
	ParentID     string             `json:"parentId,omitempty"`
	Result       *model.Result      `json:"result"`
	Timestamp    time.Time          `json:"timestamp"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NewInvocationEvent builds the outcome event for res.
func NewInvocationEvent(workflowID string, wfType model.WorkflowType, parentID string, res *model.Result) Event {
	typ := TypeInvocationFailed
	if res != nil && res.Success {
		typ = TypeInvocationCompleted
	}
	return Event{
		ID:           uuid.New().String(),
		Type:         typ,
		WorkflowID:   workflowID,
		WorkflowType: wfType,
		ParentID:     parentID,
		Result:       res,
		Timestamp:    time.Now().UTC(),
	}
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
