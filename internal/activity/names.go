package activity

import (
	"time"

	"github.com/edvin/commerce-messaging/internal/engine"
)

// Activity names as registered on the worker and referenced by workflows.
const (
	NameSendMessage             = "SendMessage"
	NameGetChannelConfig        = "GetChannelConfig"
	NameGetTemplate             = "GetTemplate"
	NameLookupCustomer          = "LookupCustomer"
	NameFetchCatalogue          = "FetchCatalogue"
	NameMarkInvocationRunning   = "MarkInvocationRunning"
	NameRecordInvocationOutcome = "RecordInvocationOutcome"
)

// DefaultPolicies are the retry policies activities run with unless an
// override is configured.
var DefaultPolicies = map[string]engine.RetryPolicy{
	NameSendMessage:             engine.DefaultRetryPolicy(),
	NameGetChannelConfig:        engine.DefaultRetryPolicy(),
	NameGetTemplate:             engine.DefaultRetryPolicy(),
	NameLookupCustomer:          engine.DefaultRetryPolicy(),
	NameFetchCatalogue:          withTimeout(engine.DefaultRetryPolicy(), 2*time.Minute),
	NameMarkInvocationRunning:   bookkeepingPolicy(),
	NameRecordInvocationOutcome: bookkeepingPolicy(),
}

// Policy returns the default policy for name.
func Policy(name string) engine.RetryPolicy {
	if p, ok := DefaultPolicies[name]; ok {
		return p
	}
	return engine.DefaultRetryPolicy()
}

func bookkeepingPolicy() engine.RetryPolicy {
	p := engine.DefaultRetryPolicy()
	p.MaxAttempts = 5
	p.StartToCloseTimeout = 30 * time.Second
	return p
}

func withTimeout(p engine.RetryPolicy, d time.Duration) engine.RetryPolicy {
	p.StartToCloseTimeout = d
	return p
}
