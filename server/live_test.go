package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveView(t *testing.T) {
	env := newTestEnv(t)

	var state ViewState
	require.Equal(t, http.StatusCreated, env.do("POST", "/views", nil, &state))

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/views/" + state.ID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg struct {
		State ViewState `json:"state"`
		Map   struct {
			Type string `json:"type"`
		} `json:"map"`
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, state.ID, msg.State.ID)
	assert.Equal(t, "FeatureCollection", msg.Map.Type)

	// a tracker run changes the counters, which are pushed to the view
	env.queueStates(`{"states": [["abc", "AL123 ", "", 0, 0, 20.0, 10.0]]}`)
	require.Equal(t, http.StatusOK, env.do("POST", "/update-routes", nil, nil))
	require.Equal(t, http.StatusOK, env.do("GET", "/info", nil, nil))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Contains(t, msg.State.Stats, "Planes: 0/1")
}

func TestLiveViewUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/views/missing/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
