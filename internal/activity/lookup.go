package activity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

// Lookup contains read-only activities against the organization directory.
type Lookup struct {
	dir    store.Directory
	logger zerolog.Logger
}

func NewLookup(dir store.Directory, logger zerolog.Logger) *Lookup {
	return &Lookup{
		dir:    dir,
		logger: logger.With().Str("component", "lookup-activity").Logger(),
	}
}

type TemplateQuery struct {
	OrgID string `json:"orgId"`
	Kind  string `json:"kind"`
}

type CustomerQuery struct {
	OrgID      string `json:"orgId"`
	CustomerID string `json:"customerId"`
}

type CatalogueQuery struct {
	OrgID       string `json:"orgId"`
	CatalogueID string `json:"catalogueId"`
}

// GetChannelConfig returns the active messaging channel of an organization.
func (a *Lookup) GetChannelConfig(ctx context.Context, orgID string) (*model.ChannelConfig, error) {
	c, err := a.dir.ChannelConfig(ctx, orgID)
	if err != nil {
		return nil, a.fail(NameGetChannelConfig, classifyLookup("get channel config", err))
	}
	if !c.Active {
		return nil, a.fail(NameGetChannelConfig, engine.Fatal("get channel config", fmt.Errorf("channel %s is inactive", c.ID)))
	}
	a.ok(NameGetChannelConfig)
	return c, nil
}

func (a *Lookup) GetTemplate(ctx context.Context, q TemplateQuery) (*model.Template, error) {
	t, err := a.dir.Template(ctx, q.OrgID, q.Kind)
	if err != nil {
		return nil, a.fail(NameGetTemplate, classifyLookup("get template", err))
	}
	a.ok(NameGetTemplate)
	return t, nil
}

// LookupCustomer resolves a recipient's contact details.
func (a *Lookup) LookupCustomer(ctx context.Context, q CustomerQuery) (*model.Customer, error) {
	c, err := a.dir.Customer(ctx, q.OrgID, q.CustomerID)
	if err != nil {
		return nil, a.fail(NameLookupCustomer, classifyLookup("lookup customer", err))
	}
	if c.Phone == "" {
		return nil, a.fail(NameLookupCustomer, engine.Fatal("lookup customer", fmt.Errorf("customer %s has no phone number", q.CustomerID)))
	}
	a.ok(NameLookupCustomer)
	return c, nil
}

// FetchCatalogue loads a catalogue and its products. An empty catalogue is
// not worth broadcasting and fails permanently.
func (a *Lookup) FetchCatalogue(ctx context.Context, q CatalogueQuery) (*model.Catalogue, error) {
	c, err := a.dir.Catalogue(ctx, q.OrgID, q.CatalogueID)
	if err != nil {
		return nil, a.fail(NameFetchCatalogue, classifyLookup("fetch catalogue", err))
	}
	if len(c.Products) == 0 {
		return nil, a.fail(NameFetchCatalogue, engine.Fatal("fetch catalogue", fmt.Errorf("catalogue %s has no products", q.CatalogueID)))
	}
	a.ok(NameFetchCatalogue)
	return c, nil
}

func (a *Lookup) ok(name string) {
	metrics.ActivityExecutions.WithLabelValues(name, string(engine.OutcomeSuccess)).Inc()
}

func (a *Lookup) fail(name string, err error) error {
	outcome := engine.Classify(err)
	metrics.ActivityExecutions.WithLabelValues(name, string(outcome)).Inc()
	a.logger.Warn().Err(err).Str("activity", name).Str("outcome", string(outcome)).Msg("lookup failed")
	return engine.TemporalError(err)
}
