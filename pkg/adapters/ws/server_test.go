package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronote/pkg/adapters/ws"
	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/eventloop"
	"github.com/aretw0/chronote/pkg/events"
	"github.com/aretw0/chronote/pkg/host"
	"github.com/aretw0/chronote/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *host.Chronote) {
	t.Helper()

	loop := eventloop.New()
	bus := events.NewBus()
	c := host.New(loop,
		host.WithTarget(bus),
		host.WithSimulator(store.Simulator{Work: 10 * time.Millisecond, Overhead: time.Millisecond}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	srv := httptest.NewServer(ws.NewServer(c, bus).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return srv, c
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_NotesWithoutStrategy(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/notes", `{"note": "hello"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, core.ErrNoStrategy.Error(), body["error"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/notes", `{"note": "  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ConfigureAndState(t *testing.T) {
	srv, c := newTestServer(t)

	resp, body := do(t, http.MethodPut, srv.URL+"/store", `{"store": "setTimeoutByParts", "parts": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "setTimeoutByParts", body["store"])
	assert.Equal(t, core.KindSetTimeoutByParts, c.Kind())

	resp, _ = do(t, http.MethodPut, srv.URL+"/store", `{"store": "webWorker"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPut, srv.URL+"/store", `{"store": "sync", "parts": -1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/state", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body["store"])
	assert.Equal(t, "ready", body["status"])
}

func TestServer_StreamsSaveEvents(t *testing.T) {
	srv, c := newTestServer(t)
	require.NoError(t, c.Configure(core.KindAwaitedPromise, 0))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer conn.Close()

	resp, _ := do(t, http.MethodPost, srv.URL+"/notes", `{"note": "hello"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var seen []core.EventType
	for {
		var e core.Event
		require.NoError(t, conn.ReadJSON(&e))
		seen = append(seen, e.Type)
		if e.Type == core.EventPerfMeasurement {
			require.NotNil(t, e.Measurement)
			assert.Equal(t, "awaitedPromise", e.Measurement.Name)
			assert.GreaterOrEqual(t, e.Measurement.Duration, 10*time.Millisecond)
			break
		}
	}
	assert.Equal(t, core.EventStatusChange, seen[0])
	assert.Contains(t, seen, core.EventTraceNew)
}
