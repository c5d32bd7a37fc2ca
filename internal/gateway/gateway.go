package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"golang.org/x/sync/singleflight"

	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/metrics"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

// ErrRuntimeUnavailable is returned when the workflow runtime could not be
// reached within the gateway's retry budget.
var ErrRuntimeUnavailable = errors.New("workflow runtime unavailable")

// Runtime is the subset of the Temporal client the gateway drives.
type Runtime interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) client.WorkflowRun
	CheckHealth(ctx context.Context, request *client.CheckHealthRequest) (*client.CheckHealthResponse, error)
}

// Options are the gateway settings. RunOptions values are injected into the
// arguments of every workflow started.
type Options struct {
	SyncWait          time.Duration
	SettleDelay       time.Duration
	FanOutConcurrency int
	Policies          map[string]engine.RetryPolicy
	// DefaultOrgID is used for events that arrive without an orgContext id.
	DefaultOrgID string
	// RuntimePolicy bounds retries of start and observe calls.
	RuntimePolicy engine.RetryPolicy
}

const defaultSyncWait = 30 * time.Second

// StartRequest asks the gateway to start (or find) the invocation for an
// event. A zero Mode uses the workflow type's default, a zero Wait the
// configured sync wait.
type StartRequest struct {
	Type  model.WorkflowType
	Input model.StartInput
	Mode  model.Mode
	Wait  time.Duration
}

// Outcome is what a start or await resolves to. Result is set once the
// invocation is terminal.
type Outcome struct {
	WorkflowID string
	Status     model.InvocationStatus
	Result     *model.Result
	// Cached is true when the result came from an earlier run of the same
	// idempotency key.
	Cached bool
}

// Gateway translates business events into workflow invocations. At most one
// live invocation exists per workflow id: concurrent requests in the process
// are collapsed, and the runtime rejects a second execution across processes.
type Gateway struct {
	runtime Runtime
	store   store.InvocationStore
	opts    Options
	flight  singleflight.Group
	sleep   func(context.Context, time.Duration) error
	logger  zerolog.Logger
}

func New(rt Runtime, s store.InvocationStore, opts Options, logger zerolog.Logger) *Gateway {
	if opts.SyncWait <= 0 {
		opts.SyncWait = defaultSyncWait
	}
	if opts.RuntimePolicy.MaxAttempts == 0 {
		opts.RuntimePolicy = engine.GatewayRetryPolicy()
	}
	return &Gateway{
		runtime: rt,
		store:   s,
		opts:    opts,
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

// handle is an invocation the gateway has started or attached to.
type handle struct {
	outcome Outcome
	run     client.WorkflowRun
}

// Start resolves req to an invocation. Terminal invocations return their
// stored result without touching the runtime. Otherwise the workflow is
// started (or attached to) and, in sync mode, awaited up to the wait budget.
func (g *Gateway) Start(ctx context.Context, req StartRequest) (*Outcome, error) {
	queue := req.Type.TaskQueue()
	if queue == "" {
		return nil, engine.Validation("type", fmt.Sprintf("unknown workflow type %q", req.Type))
	}
	entityID, err := model.EntityID(req.Input.BusinessEntity)
	if err != nil {
		return nil, engine.Validation("businessEntity", err.Error())
	}
	mode := req.Mode
	if mode == "" {
		mode = req.Type.DefaultMode()
	}
	if req.Input.OrgContext.ID == "" {
		req.Input.OrgContext.ID = g.opts.DefaultOrgID
	}

	workflowID := engine.WorkflowID(string(req.Type), entityID)
	// Callers sharing a flight must not see the first caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := g.flight.Do(workflowID, func() (interface{}, error) {
		return g.resolve(flightCtx, req.Type, workflowID, req.Input)
	})
	if err != nil {
		metrics.WorkflowStarts.WithLabelValues(string(req.Type), "failed").Inc()
		return nil, err
	}
	h := v.(*handle)
	out := h.outcome

	if out.Status.IsTerminal() || mode == model.ModeAsync {
		return &out, nil
	}

	wait := req.Wait
	if wait <= 0 {
		wait = g.opts.SyncWait
	}
	return g.await(ctx, req.Type, workflowID, h.run, wait)
}

// resolve looks up the invocation and starts the workflow unless it is
// already terminal. A failed start leaves the invocation pending; the next
// Start for the same id retries it under the same idempotency key.
func (g *Gateway) resolve(ctx context.Context, wfType model.WorkflowType, workflowID string, in model.StartInput) (*handle, error) {
	log := g.logger.With().Str("workflow_id", workflowID).Logger()

	existing, err := g.store.Get(ctx, workflowID)
	switch {
	case err == nil && existing.Status.IsTerminal():
		log.Debug().Str("status", string(existing.Status)).Msg("returning cached result")
		metrics.WorkflowStarts.WithLabelValues(string(wfType), "cached").Inc()
		return &handle{outcome: Outcome{
			WorkflowID: workflowID,
			Status:     existing.Status,
			Result:     existing.Outcome(),
			Cached:     true,
		}}, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("look up invocation %s: %w", workflowID, err)
	}

	in.Options = model.RunOptions{
		SettleDelay:       g.opts.SettleDelay,
		FanOutConcurrency: g.opts.FanOutConcurrency,
		Policies:          g.opts.Policies,
	}

	status := model.StatusPending
	created := false
	if existing != nil {
		status = existing.Status
	} else {
		args, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal workflow args: %w", err)
		}
		created, err = g.store.Create(ctx, &model.Invocation{
			WorkflowID:   workflowID,
			WorkflowType: wfType,
			TaskQueue:    wfType.TaskQueue(),
			Args:         args,
		})
		if err != nil {
			return nil, fmt.Errorf("create invocation %s: %w", workflowID, err)
		}
	}

	run, attached, err := g.startWorkflow(ctx, wfType, workflowID, in)
	if err != nil {
		log.Warn().Err(err).Msg("workflow start failed; invocation left pending")
		return nil, fmt.Errorf("%w: start %s: %v", ErrRuntimeUnavailable, workflowID, err)
	}

	resolution := "started"
	if attached || !created {
		resolution = "attached"
	}
	metrics.WorkflowStarts.WithLabelValues(string(wfType), resolution).Inc()
	log.Info().Str("resolution", resolution).Str("task_queue", wfType.TaskQueue()).Msg("workflow invocation resolved")

	return &handle{
		outcome: Outcome{WorkflowID: workflowID, Status: status},
		run:     run,
	}, nil
}

// startWorkflow starts the workflow under its idempotency key. A running
// execution with the same id is reused by the runtime; a closed one is
// attached to instead of being run again.
func (g *Gateway) startWorkflow(ctx context.Context, wfType model.WorkflowType, workflowID string, in model.StartInput) (client.WorkflowRun, bool, error) {
	opts := client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                wfType.TaskQueue(),
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}

	type started struct {
		run      client.WorkflowRun
		attached bool
	}
	st, err := engine.Execute(ctx, g.opts.RuntimePolicy, func(ctx context.Context) (started, error) {
		run, err := g.runtime.ExecuteWorkflow(ctx, opts, string(wfType), in)
		if err == nil {
			return started{run: run}, nil
		}
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return started{run: g.runtime.GetWorkflow(ctx, workflowID, ""), attached: true}, nil
		}
		return started{}, classifyRuntime(err)
	}, g.runtimeOpts("start")...)
	return st.run, st.attached, err
}

// Await waits up to wait for the invocation's terminal result.
func (g *Gateway) Await(ctx context.Context, workflowID string, wait time.Duration) (*Outcome, error) {
	inv, err := g.store.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if inv.Status.IsTerminal() {
		return &Outcome{WorkflowID: workflowID, Status: inv.Status, Result: inv.Outcome(), Cached: true}, nil
	}
	if wait <= 0 {
		wait = g.opts.SyncWait
	}
	return g.await(ctx, inv.WorkflowType, workflowID, g.runtime.GetWorkflow(ctx, workflowID, ""), wait)
}

// await blocks on run until it finishes or wait elapses. Abandoning the wait
// never cancels the invocation.
func (g *Gateway) await(ctx context.Context, wfType model.WorkflowType, workflowID string, run client.WorkflowRun, wait time.Duration) (*Outcome, error) {
	start := time.Now()
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	policy := g.opts.RuntimePolicy
	policy.StartToCloseTimeout = wait
	res, err := engine.Execute(wctx, policy, func(ctx context.Context) (*model.Result, error) {
		var res model.Result
		if err := run.Get(ctx, &res); err != nil {
			return nil, classifyRuntime(err)
		}
		return &res, nil
	}, g.runtimeOpts("await")...)

	elapsed := time.Since(start)
	switch {
	case err == nil:
		status := model.StatusFailed
		if res.Success {
			status = model.StatusCompleted
		}
		metrics.SyncWaitDuration.WithLabelValues(string(wfType), "completed").Observe(elapsed.Seconds())
		return &Outcome{WorkflowID: workflowID, Status: status, Result: res}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || wctx.Err() != nil:
		metrics.SyncWaitDuration.WithLabelValues(string(wfType), "timeout").Observe(elapsed.Seconds())
		g.logger.Info().Str("workflow_id", workflowID).Dur("waited", wait).Msg("sync wait timed out, invocation continues")
		return nil, &engine.GatewayTimeoutError{WorkflowID: workflowID, Waited: wait}
	}

	metrics.SyncWaitDuration.WithLabelValues(string(wfType), "error").Observe(elapsed.Seconds())
	if inv, serr := g.store.Get(ctx, workflowID); serr == nil && inv.Status.IsTerminal() {
		return &Outcome{WorkflowID: workflowID, Status: inv.Status, Result: inv.Outcome()}, nil
	}
	return nil, fmt.Errorf("%w: await %s: %v", ErrRuntimeUnavailable, workflowID, err)
}

// Status returns the stored invocation for workflowID.
func (g *Gateway) Status(ctx context.Context, workflowID string) (*model.Invocation, error) {
	return g.store.Get(ctx, workflowID)
}

// Ready checks the invocation store and the runtime.
func (g *Gateway) Ready(ctx context.Context) error {
	if err := g.store.Ping(ctx); err != nil {
		return fmt.Errorf("invocation store: %w", err)
	}
	if _, err := g.runtime.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	return nil
}

func (g *Gateway) runtimeOpts(op string) []engine.Option {
	opts := []engine.Option{
		engine.WithName("runtime " + op),
		engine.WithObserver(func(a engine.Attempt) {
			metrics.RuntimeCalls.WithLabelValues(string(a.Outcome)).Inc()
			if a.Err != nil {
				g.logger.Warn().Err(a.Err).Str("op", op).Int("attempt", a.Number).
					Int("max_attempts", a.MaxAttempts).Dur("backoff", a.Backoff).Msg("runtime call failed")
			}
		}),
	}
	if g.sleep != nil {
		opts = append(opts, engine.WithSleep(g.sleep))
	}
	return opts
}

// classifyRuntime marks runtime errors that retrying cannot fix as fatal.
// A workflow that ended without a result (terminated, timed out) is also
// final.
func classifyRuntime(err error) error {
	var (
		invalid  *serviceerror.InvalidArgument
		notFound *serviceerror.NamespaceNotFound
		denied   *serviceerror.PermissionDenied
		wfErr    *temporal.WorkflowExecutionError
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &notFound), errors.As(err, &denied), errors.As(err, &wfErr):
		return engine.Fatal("runtime", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return engine.Transient("runtime", err)
}
