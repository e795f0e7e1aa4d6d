package parking

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbellom/parking-rfid-sim/core/model"
)

func dialWS(t *testing.T, h *Handler, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(serveMux(h))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/parking/ws/parking_activity" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func TestPushUtilMode(t *testing.T) {
	h, state, _ := newTestHandler(t)
	_, err := state.Start(model.SimulationRequest{LotSize: 4, Latitude: 18.4, Longitude: -66.0})
	require.NoError(t, err)
	require.NoError(t, state.Insert(model.Vehicle{RFID: "CAR001", Status: model.StatusParked}))

	conn := dialWS(t, h, "?type=util")
	var occ model.Occupancy
	require.NoError(t, conn.ReadJSON(&occ))
	assert.Equal(t, 1, occ.SpotsInUse)
	assert.Equal(t, 3, occ.SpotsAvail)
}

func TestPushActivityModeIsDefault(t *testing.T) {
	h, state, _ := newTestHandler(t)
	_, err := state.Start(model.SimulationRequest{LotSize: 2, Latitude: 18.4, Longitude: -66.0})
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, state.Insert(model.Vehicle{
		RFID: "CAR001", Status: model.StatusSearching,
		EntryTime: now, StatusStartTime: now,
	}))

	conn := dialWS(t, h, "")
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(frame, &views))
	require.Len(t, views, 1)
	assert.Equal(t, "CAR001", views[0]["rfid"])
	assert.Equal(t, "searching", views[0]["status"])
}

func TestPushUnknownModeSendsEmptyObject(t *testing.T) {
	h, _, _ := newTestHandler(t)
	conn := dialWS(t, h, "?type=bogus")
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(frame))
}

func TestPushDeliversSuccessiveFrames(t *testing.T) {
	h, state, _ := newTestHandler(t)
	_, err := state.Start(model.SimulationRequest{LotSize: 2, Latitude: 18.4, Longitude: -66.0})
	require.NoError(t, err)

	conn := dialWS(t, h, "?type=util")
	// The handler pushes once per interval (50ms in tests); two reads
	// must both succeed without the client sending anything.
	var first, second model.Occupancy
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, first, second)
}
