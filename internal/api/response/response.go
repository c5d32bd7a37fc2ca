package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/edvin/commerce-messaging/internal/model"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error is the body of every failed request.
type Error struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Error{Success: false, Error: message})
}

// Started is returned for a start request. Result is present once the
// invocation is terminal; otherwise Status tells the caller to poll.
type Started struct {
	Success    bool          `json:"success"`
	WorkflowID string        `json:"workflowId"`
	Status     string        `json:"status,omitempty"`
	Result     *model.Result `json:"result,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Invocation is the poll document for one workflow id. Workflow arguments
// are not exposed.
type Invocation struct {
	WorkflowID   string        `json:"workflowId"`
	WorkflowType string        `json:"workflowType"`
	TaskQueue    string        `json:"taskQueue"`
	Status       string        `json:"status"`
	ParentID     *string       `json:"parentId,omitempty"`
	Result       *model.Result `json:"result,omitempty"`
	Error        *string       `json:"error,omitempty"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func FromInvocation(inv *model.Invocation) Invocation {
	return Invocation{
		WorkflowID:   inv.WorkflowID,
		WorkflowType: string(inv.WorkflowType),
		TaskQueue:    inv.TaskQueue,
		Status:       string(inv.Status),
		ParentID:     inv.ParentID,
		Result:       inv.Outcome(),
		Error:        inv.Error,
		StartedAt:    inv.StartedAt,
		CompletedAt:  inv.CompletedAt,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}
