package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edvin/commerce-messaging/internal/model"
)

// MemoryStore is an in-process InvocationStore. It is used by tests and by
// single-process development setups without Postgres.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*model.Invocation
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*model.Invocation), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, inv *model.Invocation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[inv.WorkflowID]; ok {
		return false, nil
	}
	now := s.now()
	inv.Status = model.StatusPending
	inv.CreatedAt = now
	inv.UpdatedAt = now
	cp := *inv
	s.items[inv.WorkflowID] = &cp
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, workflowID string) (*model.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.items[workflowID]
	if !ok {
		return nil, fmt.Errorf("invocation %s: %w", workflowID, ErrNotFound)
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) MarkRunning(_ context.Context, inv *model.Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.items[inv.WorkflowID]
	if !ok {
		cp := *inv
		cp.Status = model.StatusRunning
		cp.StartedAt = &now
		cp.CreatedAt = now
		cp.UpdatedAt = now
		s.items[inv.WorkflowID] = &cp
		return nil
	}
	if cur.Status.IsTerminal() {
		return nil
	}
	cur.Status = model.StatusRunning
	if cur.StartedAt == nil {
		cur.StartedAt = &now
	}
	cur.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, workflowID string, res *model.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[workflowID]
	if !ok || cur.Status.IsTerminal() {
		return false, nil
	}
	now := s.now()
	cur.Status = terminalStatus(res)
	if cur.Status == model.StatusCompleted {
		r := *res
		cur.Result = &r
	} else {
		msg := "workflow failed"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		cur.Error = &msg
		if res != nil {
			r := *res
			cur.Failure = &r
		}
	}
	if cur.StartedAt == nil {
		cur.StartedAt = &now
	}
	cur.CompletedAt = &now
	cur.UpdatedAt = now
	return true, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
