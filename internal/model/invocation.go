package model

import (
	"encoding/json"
	"time"
)

// Invocation is the durable record of one workflow run, keyed by its
// idempotency key. It is created pending by the gateway (or by a fan-out
// parent for its children) and mutated only by the worker executing it.
type Invocation struct {
	WorkflowID   string           `json:"workflowId"`
	WorkflowType WorkflowType     `json:"workflowType"`
	TaskQueue    string           `json:"taskQueue"`
	ParentID     *string          `json:"parentId,omitempty"`
	Args         json.RawMessage  `json:"args,omitempty"`
	Status       InvocationStatus `json:"status"`
	Result       *Result          `json:"result,omitempty"`
	Error        *string          `json:"error,omitempty"`
	StartedAt    *time.Time       `json:"startedAt,omitempty"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	// Failure is the full result of a failed run, kept so a repeat caller
	// sees what the first caller saw. Result and Error stay exclusive.
	Failure *Result `json:"failure,omitempty"`
}

// Outcome returns the result callers see for a terminal invocation. A failed
// invocation without a stored Failure gets a result rebuilt around its error.
func (i *Invocation) Outcome() *Result {
	switch i.Status {
	case StatusCompleted:
		return i.Result
	case StatusFailed:
		if i.Failure != nil {
			return i.Failure
		}
		r := &Result{
			Success:    false,
			Message:    "workflow failed",
			WorkflowID: i.WorkflowID,
		}
		if i.Error != nil {
			r.Error = *i.Error
		}
		if i.StartedAt != nil {
			r.Timestamps.StartedAt = *i.StartedAt
		}
		if i.CompletedAt != nil {
			r.Timestamps.CompletedAt = *i.CompletedAt
		}
		return r
	}
	return nil
}
