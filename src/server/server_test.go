package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/datamodels"
	"crossbot/src/metrics"
)

type stubReports struct{}

func (stubReports) ComputeMetrics() datamodels.MetricsSnapshot {
	return datamodels.MetricsSnapshot{TotalTransactions: 7, SuccessRate: 99}
}

func (stubReports) GetReport() string {
	return "PERFORMANCE METRICS REPORT"
}

func newTestServer(t *testing.T) (*httptest.Server, *metrics.LatestStateStore, *metrics.WebsocketStateWriter) {
	t.Helper()
	store := metrics.NewLatestStateStore("run-1", "XBTUSD")
	stateWriter := metrics.NewWebsocketStateWriter()
	srv := NewServer(":0").
		WithStateSource(store).
		WithReportSource(stubReports{}).
		WithStateWriter(stateWriter)
	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		stateWriter.Close()
		httpServer.Close()
	})
	return httpServer, store, stateWriter
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	httpServer, _, _ := newTestServer(t)

	status, body := get(t, httpServer.URL+"/health")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Crossbot is healthy", body)
}

func TestVersion(t *testing.T) {
	httpServer, _, _ := newTestServer(t)

	status, body := get(t, httpServer.URL+"/version")

	assert.Equal(t, http.StatusOK, status)
	info := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	assert.Equal(t, "unknown", info["commit"])
}

func TestStateBeforeAndAfterFirstSignal(t *testing.T) {
	httpServer, store, _ := newTestServer(t)

	status, body := get(t, httpServer.URL+"/state")
	require.Equal(t, http.StatusOK, status)
	snapshot := datamodels.StateSnapshot{}
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.False(t, snapshot.Ready)
	assert.Equal(t, "XBTUSD", snapshot.Symbol)

	require.NoError(t, store.Write(context.Background(), datamodels.NewStateSnapshot("run-1", "XBTUSD", time.Now(),
		datamodels.SignalResult{Price: 4, FastMa: 4.5, SlowMa: 4.67, Position: datamodels.PositionShort})))

	_, body = get(t, httpServer.URL+"/state")
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.True(t, snapshot.Ready)
	assert.Equal(t, -1, snapshot.Position)
	assert.Contains(t, body, `"fast_ma":4.5`)
}

func TestReport(t *testing.T) {
	httpServer, _, _ := newTestServer(t)

	status, body := get(t, httpServer.URL+"/report")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PERFORMANCE METRICS REPORT", body)

	_, body = get(t, httpServer.URL+"/report?format=json")
	snapshot := datamodels.MetricsSnapshot{}
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.Equal(t, 7, snapshot.TotalTransactions)
}

func TestPrometheusMetrics(t *testing.T) {
	httpServer, _, _ := newTestServer(t)
	metrics.HeartbeatsTotal.Inc()

	status, body := get(t, httpServer.URL+"/metrics")

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "crossbot_heartbeats_total")
}

func TestWebSocketStreamsState(t *testing.T) {
	httpServer, store, stateWriter := newTestServer(t)
	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	greeting := datamodels.StateSnapshot{}
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.False(t, greeting.Ready)

	require.Eventually(t, func() bool { return stateWriter.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	pushed := datamodels.NewStateSnapshot("run-1", "XBTUSD", time.Now(), datamodels.SignalResult{Price: 65000})
	require.NoError(t, store.Write(context.Background(), pushed))
	require.NoError(t, stateWriter.Write(context.Background(), pushed))

	received := datamodels.StateSnapshot{}
	require.NoError(t, conn.ReadJSON(&received))
	assert.Equal(t, 65000.0, received.Price)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{MessageType: MetricsRequest}))
	response := struct {
		Success bool                       `json:"success"`
		Data    datamodels.MetricsSnapshot `json:"data"`
	}{}
	require.NoError(t, conn.ReadJSON(&response))
	assert.True(t, response.Success)
	assert.Equal(t, 7, response.Data.TotalTransactions)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{MessageType: "dance"}))
	failure := WebSocketResponse{}
	require.NoError(t, conn.ReadJSON(&failure))
	assert.False(t, failure.Success)
	assert.Contains(t, failure.Error, "dance")
}

func TestStartRequiresSources(t *testing.T) {
	err := NewServer(":0").Start(context.Background())
	assert.Error(t, err)
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer("127.0.0.1:0").
		WithStateSource(metrics.NewLatestStateStore("run-1", "XBTUSD")).
		WithReportSource(stubReports{})

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
