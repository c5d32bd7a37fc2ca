package activity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

func TestGetChannelConfig(t *testing.T) {
	dir := &mockDirectory{}
	a := NewLookup(dir, zerolog.Nop())
	ctx := context.Background()

	dir.On("ChannelConfig", mock.Anything, "org-1").Return(&model.ChannelConfig{ID: "ch-1", OrgID: "org-1", Active: true}, nil).Once()
	c, err := a.GetChannelConfig(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", c.ID)

	dir.On("ChannelConfig", mock.Anything, "org-2").Return(&model.ChannelConfig{ID: "ch-2", Active: false}, nil).Once()
	_, err = a.GetChannelConfig(ctx, "org-2")
	requireAppError(t, err, engine.ErrTypeFatal, true)
	assert.Contains(t, err.Error(), "inactive")

	dir.On("ChannelConfig", mock.Anything, "org-3").Return(nil, fmt.Errorf("channel for org org-3: %w", store.ErrNotFound)).Once()
	_, err = a.GetChannelConfig(ctx, "org-3")
	requireAppError(t, err, engine.ErrTypeFatal, true)

	dir.On("ChannelConfig", mock.Anything, "org-4").Return(nil, errors.New("too many connections")).Once()
	_, err = a.GetChannelConfig(ctx, "org-4")
	requireAppError(t, err, engine.ErrTypeTransient, false)
}

func TestGetTemplate(t *testing.T) {
	dir := &mockDirectory{}
	a := NewLookup(dir, zerolog.Nop())

	dir.On("Template", mock.Anything, "org-1", model.TemplateBackInStock).
		Return(&model.Template{ID: "t-1", Kind: model.TemplateBackInStock, Body: "{{.productName}} is back"}, nil)

	tmpl, err := a.GetTemplate(context.Background(), TemplateQuery{OrgID: "org-1", Kind: model.TemplateBackInStock})
	require.NoError(t, err)
	assert.Equal(t, "t-1", tmpl.ID)
}

func TestLookupCustomer(t *testing.T) {
	dir := &mockDirectory{}
	a := NewLookup(dir, zerolog.Nop())
	ctx := context.Background()

	dir.On("Customer", mock.Anything, "org-1", "C-1").Return(&model.Customer{ID: "C-1", Phone: "+15550002222"}, nil)
	dir.On("Customer", mock.Anything, "org-1", "C-2").Return(&model.Customer{ID: "C-2"}, nil)
	dir.On("Customer", mock.Anything, "org-1", "C-3").Return(nil, store.ErrNotFound)

	c, err := a.LookupCustomer(ctx, CustomerQuery{OrgID: "org-1", CustomerID: "C-1"})
	require.NoError(t, err)
	assert.Equal(t, "+15550002222", c.Phone)

	_, err = a.LookupCustomer(ctx, CustomerQuery{OrgID: "org-1", CustomerID: "C-2"})
	requireAppError(t, err, engine.ErrTypeFatal, true)

	_, err = a.LookupCustomer(ctx, CustomerQuery{OrgID: "org-1", CustomerID: "C-3"})
	requireAppError(t, err, engine.ErrTypeFatal, true)
}

func TestFetchCatalogue(t *testing.T) {
	dir := &mockDirectory{}
	a := NewLookup(dir, zerolog.Nop())
	ctx := context.Background()

	dir.On("Catalogue", mock.Anything, "org-1", "cat-1").Return(&model.Catalogue{
		ID: "cat-1", Name: "Spring", Products: []model.Product{{ID: "p-1", Name: "Shirt"}},
	}, nil)
	dir.On("Catalogue", mock.Anything, "org-1", "cat-empty").Return(&model.Catalogue{ID: "cat-empty"}, nil)

	c, err := a.FetchCatalogue(ctx, CatalogueQuery{OrgID: "org-1", CatalogueID: "cat-1"})
	require.NoError(t, err)
	assert.Len(t, c.Products, 1)

	_, err = a.FetchCatalogue(ctx, CatalogueQuery{OrgID: "org-1", CatalogueID: "cat-empty"})
	requireAppError(t, err, engine.ErrTypeFatal, true)
	assert.Contains(t, err.Error(), "no products")
}
