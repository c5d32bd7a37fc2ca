package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/commerce-messaging/internal/api/request"
	"github.com/edvin/commerce-messaging/internal/api/response"
	"github.com/edvin/commerce-messaging/internal/engine"
	"github.com/edvin/commerce-messaging/internal/gateway"
	"github.com/edvin/commerce-messaging/internal/model"
	"github.com/edvin/commerce-messaging/internal/store"
)

// Gateway is what the workflow endpoints need from the gateway.
type Gateway interface {
	Start(ctx context.Context, req gateway.StartRequest) (*gateway.Outcome, error)
	Status(ctx context.Context, workflowID string) (*model.Invocation, error)
}

type Workflow struct {
	gw Gateway
}

func NewWorkflow(gw Gateway) *Workflow {
	return &Workflow{gw: gw}
}

// Start handles POST /workflows/{type}. The mode query parameter overrides
// the body's mode, which overrides the type's default.
func (h *Workflow) Start(w http.ResponseWriter, r *http.Request) {
	wfType, err := model.ParseWorkflowType(chi.URLParam(r, "type"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.StartWorkflow
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	modeParam := r.URL.Query().Get("mode")
	if modeParam == "" {
		modeParam = req.Mode
	}
	mode, err := model.ParseMode(modeParam, wfType.DefaultMode())
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.gw.Start(r.Context(), gateway.StartRequest{
		Type:  wfType,
		Input: req.Input(),
		Mode:  mode,
		Wait:  req.Wait(),
	})
	if err != nil {
		writeStartError(w, r, err)
		return
	}

	if out.Result != nil {
		response.WriteJSON(w, http.StatusOK, response.Started{
			Success:    out.Result.Success,
			WorkflowID: out.WorkflowID,
			Status:     string(out.Status),
			Result:     out.Result,
			Cached:     out.Cached,
		})
		return
	}
	response.WriteJSON(w, http.StatusAccepted, response.Started{
		Success:    true,
		WorkflowID: out.WorkflowID,
		Status:     string(out.Status),
	})
}

func writeStartError(w http.ResponseWriter, r *http.Request, err error) {
	var timeout *engine.GatewayTimeoutError
	switch {
	case errors.As(err, &timeout):
		response.WriteJSON(w, http.StatusAccepted, response.Started{
			Success:    false,
			WorkflowID: timeout.WorkflowID,
			Status:     string(model.StatusRunning),
			Message:    "Workflow still running; poll GET /workflows/" + timeout.WorkflowID,
		})
	case engine.IsValidation(err):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gateway.ErrRuntimeUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("workflow runtime unavailable")
		response.WriteError(w, http.StatusBadGateway, gateway.ErrRuntimeUnavailable.Error())
	case errors.Is(err, context.Canceled):
		response.WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("start workflow failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// Get handles GET /workflows/{id}.
func (h *Workflow) Get(w http.ResponseWriter, r *http.Request) {
	// Fan-out child ids contain "/" and arrive path-escaped.
	raw, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	id, err := request.RequireID(raw)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.gw.Status(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.WriteError(w, http.StatusNotFound, "workflow not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("workflow_id", id).Msg("read invocation failed")
		response.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	response.WriteJSON(w, http.StatusOK, response.FromInvocation(inv))
}
