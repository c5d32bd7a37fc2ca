package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edvin/commerce-messaging/internal/engine"
)

// StartInput is the argument of every top-level workflow. It is immutable
// once the invocation starts.
type StartInput struct {
	BusinessEntity json.RawMessage `json:"businessEntity"`
	Customer       *Customer       `json:"customer,omitempty"`
	OrgContext     OrgContext      `json:"orgContext"`
	Options        RunOptions      `json:"options"`
}

// RunOptions carries gateway configuration into the workflow so that the
// workflow itself never reads config.
type RunOptions struct {
	// SettleDelay keeps a finished invocation visible as running before it
	// reports its terminal state. Zero disables the wait.
	SettleDelay       time.Duration                 `json:"settleDelay,omitempty"`
	FanOutConcurrency int                           `json:"fanOutConcurrency,omitempty"`
	Policies          map[string]engine.RetryPolicy `json:"policies,omitempty"`
}

const DefaultFanOutConcurrency = 10

// Policy returns the retry policy for activity: def overlaid with any
// configured override.
func (o RunOptions) Policy(activity string, def engine.RetryPolicy) engine.RetryPolicy {
	if p, ok := o.Policies[activity]; ok {
		return def.Merge(p)
	}
	return def
}

// Concurrency returns the fan-out width, defaulting when unset.
func (o RunOptions) Concurrency() int {
	if o.FanOutConcurrency <= 0 {
		return DefaultFanOutConcurrency
	}
	return o.FanOutConcurrency
}

// Customer is the addressee of a transactional message.
type Customer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone" validate:"required,e164"`
	Language string `json:"language,omitempty"`
}

// OrgContext identifies the merchant organization the event belongs to.
type OrgContext struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name,omitempty"`
}

type Order struct {
	ID       string      `json:"id" validate:"required"`
	Number   string      `json:"number,omitempty"`
	Items    []OrderItem `json:"items,omitempty" validate:"dive"`
	Total    string      `json:"total,omitempty"`
	Currency string      `json:"currency,omitempty"`
}

type OrderItem struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1"`
	Price    string `json:"price,omitempty"`
}

// Recipient of a bulk send. A recipient without a phone number is resolved
// through the customer lookup service.
type Recipient struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// Broadcast is a catalogue promotion sent to a list of recipients.
type Broadcast struct {
	ID          string      `json:"id" validate:"required"`
	CatalogueID string      `json:"catalogueId" validate:"required"`
	Message     string      `json:"message,omitempty"`
	Recipients  []Recipient `json:"recipients" validate:"required,min=1,dive"`
}

// Restock announces that a product is available again to its subscribers.
type Restock struct {
	ID          string      `json:"id" validate:"required"`
	ProductName string      `json:"productName" validate:"required"`
	ProductURL  string      `json:"productUrl,omitempty" validate:"omitempty,url"`
	Subscribers []Recipient `json:"subscribers" validate:"required,min=1,dive"`
}

// RecipientInput is the argument of a fan-out child.
type RecipientInput struct {
	ParentWorkflowID string            `json:"parentWorkflowId"`
	ParentType       WorkflowType      `json:"parentType"`
	OrgID            string            `json:"orgId"`
	Recipient        Recipient         `json:"recipient"`
	Channel          ChannelConfig     `json:"channel"`
	Template         Template          `json:"template"`
	Variables        map[string]string `json:"variables,omitempty"`
	Options          RunOptions        `json:"options"`
}

// EntityID extracts the "id" field of a business entity. Numeric ids are
// accepted and rendered in their JSON form.
func EntityID(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", fmt.Errorf("businessEntity is required")
	}
	var entity map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entity); err != nil {
		return "", fmt.Errorf("businessEntity must be an object: %w", err)
	}
	idRaw, ok := entity["id"]
	if !ok {
		return "", fmt.Errorf("businessEntity.id is required")
	}
	var s string
	if err := json.Unmarshal(idRaw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("businessEntity.id is required")
		}
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(idRaw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("businessEntity.id must be a string or number")
	}
	return n.String(), nil
}
