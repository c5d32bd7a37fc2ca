package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/commerce-messaging/internal/events"
	"github.com/edvin/commerce-messaging/internal/model"
)

// mockDirectory implements store.Directory for testing.
type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) ChannelConfig(ctx context.Context, orgID string) (*model.ChannelConfig, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChannelConfig), args.Error(1)
}

func (m *mockDirectory) ChannelToken(ctx context.Context, channelID string) (string, error) {
	args := m.Called(ctx, channelID)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) Template(ctx context.Context, orgID, kind string) (*model.Template, error) {
	args := m.Called(ctx, orgID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *mockDirectory) Customer(ctx context.Context, orgID, customerID string) (*model.Customer, error) {
	args := m.Called(ctx, orgID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockDirectory) Catalogue(ctx context.Context, orgID, catalogueID string) (*model.Catalogue, error) {
	args := m.Called(ctx, orgID, catalogueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Catalogue), args.Error(1)
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.events = append(p.events, ev)
	return p.err
}

func requireAppError(t *testing.T, err error, errType string, nonRetryable bool) {
	t.Helper()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr), "expected ApplicationError, got %T", err)
	assert.Equal(t, errType, appErr.Type())
	assert.Equal(t, nonRetryable, appErr.NonRetryable())
}
