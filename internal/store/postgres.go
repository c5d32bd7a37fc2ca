package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/commerce-messaging/internal/model"
)

// PostgresStore is the InvocationStore backed by the workflow_invocations table.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, inv *model.Invocation) (bool, error) {
	now := s.now()
	tag, err := s.db.Exec(ctx,
		`INSERT INTO workflow_invocations (workflow_id, workflow_type, task_queue, parent_id, args, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (workflow_id) DO NOTHING`,
		inv.WorkflowID, string(inv.WorkflowType), inv.TaskQueue, inv.ParentID, jsonArg(inv.Args), string(model.StatusPending), now)
	if err != nil {
		return false, fmt.Errorf("insert invocation %s: %w", inv.WorkflowID, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	inv.Status = model.StatusPending
	inv.CreatedAt = now
	inv.UpdatedAt = now
	return true, nil
}

func (s *PostgresStore) Get(ctx context.Context, workflowID string) (*model.Invocation, error) {
	var (
		inv        model.Invocation
		wfType     string
		status     string
		args       []byte
		resultJSON []byte
		failure    []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT workflow_id, workflow_type, task_queue, parent_id, args, status, result, error,
		        started_at, completed_at, created_at, updated_at, failure
		 FROM workflow_invocations WHERE workflow_id = $1`, workflowID,
	).Scan(&inv.WorkflowID, &wfType, &inv.TaskQueue, &inv.ParentID, &args, &status, &resultJSON, &inv.Error,
		&inv.StartedAt, &inv.CompletedAt, &inv.CreatedAt, &inv.UpdatedAt, &failure)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("invocation %s: %w", workflowID, ErrNotFound)
		}
		return nil, fmt.Errorf("get invocation %s: %w", workflowID, err)
	}
	inv.WorkflowType = model.WorkflowType(wfType)
	inv.Status = model.InvocationStatus(status)
	if len(args) > 0 {
		inv.Args = json.RawMessage(args)
	}
	if len(resultJSON) > 0 {
		var res model.Result
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, fmt.Errorf("decode result of %s: %w", workflowID, err)
		}
		inv.Result = &res
	}
	if len(failure) > 0 {
		var res model.Result
		if err := json.Unmarshal(failure, &res); err != nil {
			return nil, fmt.Errorf("decode failure of %s: %w", workflowID, err)
		}
		inv.Failure = &res
	}
	return &inv, nil
}

func (s *PostgresStore) MarkRunning(ctx context.Context, inv *model.Invocation) error {
	now := s.now()
	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_invocations (workflow_id, workflow_type, task_queue, parent_id, args, status, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 'running', $6, $6, $6)
		 ON CONFLICT (workflow_id) DO UPDATE
		 SET status = 'running',
		     started_at = COALESCE(workflow_invocations.started_at, EXCLUDED.started_at),
		     updated_at = EXCLUDED.updated_at
		 WHERE workflow_invocations.status IN ('pending', 'running')`,
		inv.WorkflowID, string(inv.WorkflowType), inv.TaskQueue, inv.ParentID, jsonArg(inv.Args), now)
	if err != nil {
		return fmt.Errorf("mark invocation %s running: %w", inv.WorkflowID, err)
	}
	return nil
}

func (s *PostgresStore) Complete(ctx context.Context, workflowID string, res *model.Result) (bool, error) {
	status := terminalStatus(res)

	var (
		resultJSON []byte
		errMsg     *string
		failure    []byte
	)
	if status == model.StatusCompleted {
		b, err := json.Marshal(res)
		if err != nil {
			return false, fmt.Errorf("encode result of %s: %w", workflowID, err)
		}
		resultJSON = b
	} else {
		msg := "workflow failed"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		errMsg = &msg
		if res != nil {
			b, err := json.Marshal(res)
			if err != nil {
				return false, fmt.Errorf("encode failure of %s: %w", workflowID, err)
			}
			failure = b
		}
	}

	now := s.now()
	tag, err := s.db.Exec(ctx,
		`UPDATE workflow_invocations
		 SET status = $2, result = $3, error = $4, failure = $6,
		     started_at = COALESCE(started_at, $5), completed_at = $5, updated_at = $5
		 WHERE workflow_id = $1 AND status IN ('pending', 'running')`,
		workflowID, string(status), resultJSON, errMsg, now, failure)
	if err != nil {
		return false, fmt.Errorf("complete invocation %s: %w", workflowID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping invocation store: %w", err)
	}
	return nil
}

// jsonArg passes raw JSON to a jsonb column, mapping empty to NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
