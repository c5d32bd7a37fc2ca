package request

import (
	"encoding/json"
	"time"

	"github.com/edvin/commerce-messaging/internal/model"
)

// StartWorkflow is the body of POST /workflows/{type}. Only the envelope is
// checked here; the entity, customer and org are validated by the workflow so
// that invalid data still produces a recorded result.
type StartWorkflow struct {
	BusinessEntity json.RawMessage  `json:"businessEntity" validate:"required"`
	Customer       *model.Customer  `json:"customer,omitempty" validate:"-"`
	OrgContext     model.OrgContext `json:"orgContext" validate:"-"`
	Mode           string           `json:"mode,omitempty" validate:"omitempty,oneof=sync async"`
	WaitSeconds    int              `json:"waitSeconds,omitempty" validate:"gte=0,lte=300"`
}

// Input returns the workflow argument carried by the request.
func (s StartWorkflow) Input() model.StartInput {
	return model.StartInput{
		BusinessEntity: s.BusinessEntity,
		Customer:       s.Customer,
		OrgContext:     s.OrgContext,
	}
}

// Wait returns the requested synchronous wait, zero meaning the default.
func (s StartWorkflow) Wait() time.Duration {
	return time.Duration(s.WaitSeconds) * time.Second
}
