package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/commerce-messaging/internal/model"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	payload := map[string]string{"hello": "world"}

	WriteJSON(w, http.StatusOK, payload)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "world", body["hello"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "something went wrong")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"something went wrong"}`, w.Body.String())
}

func TestFromInvocation_FailedRebuildsResult(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	errText := "channel returned 400"
	inv := &model.Invocation{
		WorkflowID:   "order-confirmation-O-1",
		WorkflowType: model.WorkflowOrderConfirmation,
		TaskQueue:    model.TaskQueueOrderConfirmation,
		Args:         json.RawMessage(`{"customer":{"phone":"+15551234567"}}`),
		Status:       model.StatusFailed,
		Error:        &errText,
		StartedAt:    &started,
	}

	doc := FromInvocation(inv)
	b, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.NotContains(t, string(b), "+15551234567")
	require.NotNil(t, doc.Result)
	assert.False(t, doc.Result.Success)
	assert.Equal(t, "channel returned 400", doc.Result.Error)
	assert.Equal(t, "failed", doc.Status)
}

func TestFromInvocation_PendingHasNoResult(t *testing.T) {
	doc := FromInvocation(&model.Invocation{WorkflowID: "back-in-stock-P-1", Status: model.StatusPending})
	assert.Nil(t, doc.Result)
	assert.Equal(t, "pending", doc.Status)
}
