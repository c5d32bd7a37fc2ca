package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/commerce-messaging/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// DB defines the database operations used by the Postgres stores.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InvocationStore persists workflow invocations keyed by workflow id.
type InvocationStore interface {
	// Create inserts inv as pending unless the workflow id already exists.
	// It reports whether a row was inserted.
	Create(ctx context.Context, inv *model.Invocation) (bool, error)
	Get(ctx context.Context, workflowID string) (*model.Invocation, error)
	// MarkRunning upserts inv and moves it from pending to running. Terminal
	// invocations are left untouched.
	MarkRunning(ctx context.Context, inv *model.Invocation) error
	// Complete writes the terminal state derived from res. Only the first
	// write wins; later calls report false.
	Complete(ctx context.Context, workflowID string, res *model.Result) (bool, error)
	Ping(ctx context.Context) error
}

// Directory is the read-only view of organization data the activities need.
type Directory interface {
	ChannelConfig(ctx context.Context, orgID string) (*model.ChannelConfig, error)
	ChannelToken(ctx context.Context, channelID string) (string, error)
	Template(ctx context.Context, orgID, kind string) (*model.Template, error)
	Customer(ctx context.Context, orgID, customerID string) (*model.Customer, error)
	Catalogue(ctx context.Context, orgID, catalogueID string) (*model.Catalogue, error)
}

// terminalStatus maps a workflow result to the invocation status it settles in.
func terminalStatus(res *model.Result) model.InvocationStatus {
	if res != nil && res.Success {
		return model.StatusCompleted
	}
	return model.StatusFailed
}
