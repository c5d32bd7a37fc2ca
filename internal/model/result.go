package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Result is the structured outcome shared by every workflow type. Exactly one
// of Data and Error is set.
type Result struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	EntityID   string          `json:"entityId"`
	WorkflowID string          `json:"workflowId"`
	Timestamps Timestamps      `json:"timestamps"`
}

type Timestamps struct {
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// SetData marshals v into r.Data.
func (r *Result) SetData(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Data = b
	return nil
}

// DecodeData unmarshals r.Data into v.
func (r *Result) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return errors.New("result has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// MessageData is the payload of a single successful send.
type MessageData struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status,omitempty"`
}

// FanOutData summarises a bulk send.
type FanOutData struct {
	Total      int                `json:"total"`
	Sent       int                `json:"sent"`
	Failed     int                `json:"failed"`
	Recipients []RecipientOutcome `json:"recipients"`
}

// RecipientOutcome is the result of one child invocation of a fan-out.
type RecipientOutcome struct {
	RecipientID string `json:"recipientId"`
	WorkflowID  string `json:"workflowId"`
	Success     bool   `json:"success"`
	MessageID   string `json:"messageId,omitempty"`
	Error       string `json:"error,omitempty"`
}
