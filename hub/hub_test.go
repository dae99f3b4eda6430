package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.Unregister(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h := New()
	srv := newTestServer(t, h)

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast("marker_created", map[string]int{"id": 7})

	for _, conn := range []*websocket.Conn{a, b} {
		var msg Message
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "marker_created", msg.Event)
		assert.Equal(t, map[string]interface{}{"id": float64(7)}, msg.Data)
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	h := New()
	srv := newTestServer(t, h)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// no clients left; must not block or panic
	h.Broadcast("marker_cleaned", nil)
}

func TestHub_CloseAll(t *testing.T) {
	h := New()
	srv := newTestServer(t, h)

	conn := dial(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.CloseAll()
	assert.Equal(t, 0, h.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SlowClientIsDroppedWithoutBlocking(t *testing.T) {
	h := New()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	peer := dial(t, srv)
	defer peer.Close()
	serverConn := <-conns
	defer serverConn.Close()

	// a client whose writer never drains its queue
	stalled := &client{conn: serverConn, send: make(chan []byte, 1)}
	h.mutex.Lock()
	h.clients[serverConn] = stalled
	h.mutex.Unlock()

	start := time.Now()
	h.Broadcast("marker_created", 1)
	assert.Equal(t, 1, h.ClientCount())
	h.Broadcast("marker_created", 2)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, h.ClientCount())

	_, open := <-stalled.send
	assert.True(t, open, "queued event is still readable")
	_, open = <-stalled.send
	assert.False(t, open, "queue is closed once the client is dropped")
}
