package model

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/commerce-messaging/internal/engine"
)

var validate = validator.New()

// Validation messages returned in failed results.
const (
	ErrInvalidCustomer  = "Invalid customerData"
	ErrInvalidOrg       = "Invalid orgContext"
	ErrInvalidOrder     = "Invalid orderData"
	ErrInvalidBroadcast = "Invalid catalogueData"
	ErrInvalidRestock   = "Invalid productData"
)

// ValidateCustomer requires a customer with an E.164 phone number.
func ValidateCustomer(c *Customer) error {
	if c == nil || validate.Struct(c) != nil {
		return engine.Validation("customer", ErrInvalidCustomer)
	}
	return nil
}

func ValidateOrg(o OrgContext) error {
	if validate.Struct(o) != nil {
		return engine.Validation("orgContext", ErrInvalidOrg)
	}
	return nil
}

func DecodeOrder(raw json.RawMessage) (*Order, error) {
	var o Order
	if err := decodeEntity(raw, &o); err != nil {
		return nil, engine.Validation("businessEntity", ErrInvalidOrder)
	}
	return &o, nil
}

// DecodeBroadcast also rejects duplicate recipient ids, which would collapse
// onto the same child idempotency key.
func DecodeBroadcast(raw json.RawMessage) (*Broadcast, error) {
	var b Broadcast
	if err := decodeEntity(raw, &b); err != nil || !uniqueRecipients(b.Recipients) {
		return nil, engine.Validation("businessEntity", ErrInvalidBroadcast)
	}
	return &b, nil
}

func DecodeRestock(raw json.RawMessage) (*Restock, error) {
	var r Restock
	if err := decodeEntity(raw, &r); err != nil || !uniqueRecipients(r.Subscribers) {
		return nil, engine.Validation("businessEntity", ErrInvalidRestock)
	}
	return &r, nil
}

func decodeEntity(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

func uniqueRecipients(rs []Recipient) bool {
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if _, ok := seen[r.ID]; ok {
			return false
		}
		seen[r.ID] = struct{}{}
	}
	return true
}
