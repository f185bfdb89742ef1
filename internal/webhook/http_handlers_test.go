package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"callscribe/internal/calls"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*gin.Engine, *routerFixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t, &stubTranscriber{text: "ok"}, nil)
	r := gin.New()
	Handlers{Router: f.router, Registry: f.registry}.Register(r)
	return r, f
}

func postJSON(r *gin.Engine, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandleEventRejectsNonJSON(t *testing.T) {
	r, _ := newTestEngine(t)

	w := postJSON(r, "/webhook", []byte("not json at all"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Expected JSON", resp["error"])
}

func TestHandleEventRoutesAnswered(t *testing.T) {
	r, f := newTestEngine(t)
	f.register(t, "cc1", calls.StatusInitiated)

	body := []byte(`{"data":{"event_type":"call.answered","payload":{"call_control_id":"cc1"}}}`)
	w := postJSON(r, "/webhook", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, "call.answered", ack.Event)
}

func TestHandleEventIgnoredStillHTTP200(t *testing.T) {
	r, _ := newTestEngine(t)

	body := []byte(`{"data":{"event_type":"call.playback.ended","payload":{}}}`)
	w := postJSON(r, "/webhook", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "ignored", ack.Status)
	assert.Equal(t, "call.playback.ended", ack.EventType)
}

func TestHandleRecordingSavedSynthesizesEnvelope(t *testing.T) {
	r, _ := newTestEngine(t)

	// Bare payload, no envelope: still routed as recording.saved. The call
	// is unknown, which proves it reached the reaction.
	body := []byte(`{"call_control_id":"ghost","public_recording_urls":{"mp3":"https://r/rec.mp3"}}`)
	w := postJSON(r, "/webhook/recording-saved", body)

	assert.Equal(t, http.StatusOK, w.Code)
	var ack Ack
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "error", ack.Status)
	assert.Equal(t, "Call not found", ack.Message)
}

func TestHandleRecordingSavedRejectsNonJSON(t *testing.T) {
	r, _ := newTestEngine(t)
	w := postJSON(r, "/webhook/recording-saved", []byte("garbage"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthReportsActiveCalls(t *testing.T) {
	r, f := newTestEngine(t)
	f.register(t, "cc1", calls.StatusInitiated)
	f.register(t, "cc2", calls.StatusRecording)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status      string `json:"status"`
		ActiveCalls int    `json:"active_calls"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 2, resp.ActiveCalls)
}

func TestWebhookHealth(t *testing.T) {
	r, _ := newTestEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
