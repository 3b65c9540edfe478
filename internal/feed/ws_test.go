package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testBook = `{"type":"book","symbol":"BTC/USDT","bids":[["100","1"]],"asks":[["101","1"]],"ts":0}`

// dropFirstServer accepts WebSocket connections, drops the first one right
// after its subscribe, and streams books on every later one.
func dropFirstServer(t *testing.T, dials *atomic.Int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil { // subscribe
			return
		}
		if n == 1 {
			return // drop the first connection
		}
		for {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(testBook)); err != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}))
}

func TestVenueClient_ReconnectedConnectionStaysUp(t *testing.T) {
	if testing.Short() {
		t.Skip("waits through the reconnect backoff")
	}

	var dials atomic.Int32
	srv := dropFirstServer(t, &dials)
	defer srv.Close()

	received := make(chan struct{}, 64)
	client := newVenueClient("alpha", "ws"+strings.TrimPrefix(srv.URL, "http"),
		[]string{"BTC/USDT"}, testLogger(),
		func(string, *bookMessage, time.Time) {
			select {
			case received <- struct{}{}:
			default:
			}
		})

	require.NoError(t, client.connect(context.Background()))
	defer client.close()

	// The server drops the first connection, so books only flow once the
	// client has dialed a second time.
	select {
	case <-received:
	case <-time.After(5 * reconnectDelay):
		t.Fatal("no book received after reconnect")
	}
	assert.Equal(t, int32(2), dials.Load())

	// The reconnected connection must hold: no further dials across more
	// than a full backoff window, and books keep flowing on it.
	time.Sleep(reconnectDelay + reconnectDelay/2)
	assert.Equal(t, int32(2), dials.Load(), "reconnected connection was torn down")

	for len(received) > 0 {
		<-received
	}
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnected connection stopped delivering books")
	}
}

func TestVenueClient_CloseStopsReconnect(t *testing.T) {
	var dials atomic.Int32
	srv := dropFirstServer(t, &dials)
	defer srv.Close()

	client := newVenueClient("alpha", "ws"+strings.TrimPrefix(srv.URL, "http"),
		[]string{"BTC/USDT"}, testLogger(),
		func(string, *bookMessage, time.Time) {})

	require.NoError(t, client.connect(context.Background()))
	require.NoError(t, client.close())

	// A closed client must not keep dialing from the reconnect loop.
	time.Sleep(reconnectDelay + reconnectDelay/2)
	assert.Equal(t, int32(1), dials.Load())
}
