package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStartStatusCancel(t *testing.T) {
	ta := setupApp(t)
	id := ta.createTimeline(t)

	resp := ta.do(t, http.MethodPost, "/api/render", `{"timeline_id":"`+id+`","options":{"resolution":"480p","format":"webm"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	started := parseJSON(t, resp)
	assert.Equal(t, "pending", started["status"])
	jobID := started["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Len(t, ta.enqueuer.tasks, 1)

	resp = ta.do(t, http.MethodGet, "/api/render/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := parseJSON(t, resp)
	assert.Equal(t, "pending", status["status"])
	assert.EqualValues(t, 0, status["progress"])
	options := status["options"].(map[string]interface{})
	assert.Equal(t, "480p", options["resolution"])
	assert.Equal(t, "medium", options["quality"])

	resp = ta.do(t, http.MethodDelete, "/api/render/"+jobID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "canceled", parseJSON(t, resp)["status"])

	// canceling twice is a conflict
	resp = ta.do(t, http.MethodDelete, "/api/render/"+jobID, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(t, resp))
}

func TestRenderStart_Errors(t *testing.T) {
	ta := setupApp(t)

	resp := ta.do(t, http.MethodPost, "/api/render", `{"options":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.do(t, http.MethodPost, "/api/render", `{"timeline_id":"x","options":{"format":"avi"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ta.do(t, http.MethodPost, "/api/render", `{"timeline_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ta.do(t, http.MethodGet, "/api/render/unknown-job", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/render", `{"timeline_id":"x"}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
