package handler

import (
	"bytes"
	"image/png"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewFrame(t *testing.T) {
	ta := setupApp(t)
	id := ta.createTimeline(t)
	video := ta.createTrack(t, id, "video", 0)
	text := ta.createTrack(t, id, "text", 0)

	resp := ta.createClip(t, video, `{"start_time":0,"end_time":5,"asset_type":"video","asset_url":"a.mp4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = ta.createClip(t, text, `{"start_time":0,"end_time":5,"asset_type":"text","text_content":"Title"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/60", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	frame := parseJSON(t, resp)
	assert.EqualValues(t, 60, frame["index"])
	assert.Equal(t, false, frame["empty"])
	layers := frame["layers"].([]interface{})
	require.Len(t, layers, 2)
	assert.Equal(t, "video", layers[0].(map[string]interface{})["track_kind"])
	assert.Equal(t, "text", layers[1].(map[string]interface{})["track_kind"])

	// past the end clamps to the last frame
	resp = ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/100000", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 299, parseJSON(t, resp)["index"])

	resp = ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewFrame_EmptyTimeline(t *testing.T) {
	ta := setupApp(t)
	id := ta.createTimeline(t)

	resp := ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	frame := parseJSON(t, resp)
	assert.Equal(t, true, frame["empty"])
	assert.Equal(t, "nothing to preview", frame["placeholder"])
	assert.Empty(t, frame["layers"])

	resp = ta.do(t, http.MethodGet, "/api/timelines/missing/frames/0", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreviewFrameImage(t *testing.T) {
	ta := setupApp(t)
	id := ta.createTimeline(t)
	video := ta.createTrack(t, id, "video", 0)
	resp := ta.createClip(t, video, `{"start_time":0,"end_time":5,"asset_type":"image","asset_url":"a.png"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/30/image?height=360", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(readBody(t, resp)))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 360, img.Bounds().Dy())

	resp = ta.do(t, http.MethodGet, "/api/timelines/"+id+"/frames/30/image?height=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
