package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// venueClient maintains one WebSocket connection to a venue's market-data
// gateway. Received books are handed to the owning Feed; the connection is
// re-established with exponential backoff after any read failure.
type venueClient struct {
	venue   string
	wsURL   string
	symbols []string
	onBook  func(venue string, msg *bookMessage, receivedAt time.Time)
	logger  *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool

	done chan struct{}
}

func newVenueClient(venue, wsURL string, symbols []string, logger *slog.Logger,
	onBook func(string, *bookMessage, time.Time)) *venueClient {
	return &venueClient{
		venue:   venue,
		wsURL:   wsURL,
		symbols: symbols,
		onBook:  onBook,
		logger:  logger.With(slog.String("component", "feed"), slog.String("venue", venue)),
		done:    make(chan struct{}),
	}
}

// connect establishes the WebSocket connection and subscribes to the client's
// symbols. It starts the read and ping loops.
func (c *venueClient) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("feed: %s: client closed", c.venue)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: %s: connect: %w", c.venue, err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	cmd := subscribeCommand{Type: "subscribe", Symbols: c.symbols}
	data, err := cmd.encode()
	if err != nil {
		conn.Close()
		return fmt.Errorf("feed: %s: marshal subscribe: %w", c.venue, err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return fmt.Errorf("feed: %s: subscribe: %w", c.venue, err)
	}

	c.conn = conn

	// Each connection generation owns exactly one read loop and one ping
	// loop, both bound to this conn. The stop channel ends the ping loop
	// when this generation's read loop exits, so a successor connection
	// never shares a writer or gets closed by a predecessor.
	stop := make(chan struct{})
	go c.readLoop(conn, stop)
	go c.pingLoop(conn, stop)

	return nil
}

// close shuts down the connection and stops the loops.
func (c *venueClient) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)

	if c.conn != nil {
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return c.conn.Close()
	}

	return nil
}

// readLoop reads messages on its own connection until it drops, then hands
// off to reconnect. The deferred close touches only this generation's conn,
// so a reconnect-established successor is never torn down by its
// predecessor's cleanup.
func (c *venueClient) readLoop(conn *websocket.Conn, stop chan struct{}) {
	defer close(stop)
	defer conn.Close()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.logger.Warn("read failed, reconnecting", slog.String("error", err.Error()))
			go c.reconnect() // connect starts the next generation's loops
			return
		}

		c.handleMessage(message)
	}
}

// pingLoop sends periodic pings on its own connection. It is the only ping
// writer for that conn and ends with the generation's read loop.
func (c *venueClient) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *venueClient) handleMessage(raw []byte) {
	var msg bookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return // drop unparseable messages
	}
	if msg.Type != "book" || msg.Symbol == "" {
		return
	}
	c.onBook(c.venue, &msg, time.Now())
}

// reconnect re-establishes the connection with exponential backoff. It blocks
// until successful or the client is closed.
func (c *venueClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-c.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := c.connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
