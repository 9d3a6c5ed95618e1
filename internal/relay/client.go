package relay

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/resq/internal/auth"
	"github.com/matheus3301/resq/internal/bus"
	"github.com/matheus3301/resq/internal/status"
	"go.uber.org/zap"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
)

// Client owns the single relay WebSocket connection for a session. All rooms
// multiplex over it. The connection lifecycle is tied to the session
// identity: Establish opens it, Close tears it down for good.
//
// On every (re)connect the client sends an identify frame and, once the
// server acks it, replays join frames for every room joined so far. Dial
// failures and dropped connections go through a capped exponential backoff
// with jitter.
type Client struct {
	url      string
	identity auth.Identity
	router   *Router
	machine  *status.Machine
	bus      *bus.Bus
	logger   *zap.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	open   bool
	joined []string
	seen   map[string]bool

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	started   bool
}

// NewClient creates a relay client for the given identity. It does not
// connect; call Establish.
func NewClient(url string, identity auth.Identity, router *Router, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		url:            url,
		identity:       identity,
		router:         router,
		machine:        machine,
		bus:            b,
		logger:         logger,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		seen:           make(map[string]bool),
		done:           make(chan struct{}),
	}
	router.SetIdentifiedFunc(c.onIdentified)
	return c
}

// SetBackoff overrides the retry policy. Must be called before Establish.
func (c *Client) SetBackoff(initial, max time.Duration) {
	c.initialBackoff = initial
	c.maxBackoff = max
}

// Establish starts the connection loop. It is a no-op when the session
// identity is unknown (not logged in) and when already established.
func (c *Client) Establish(ctx context.Context) {
	if c.identity.ID == "" {
		c.logger.Info("no session identity, relay connection not established")
		return
	}
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	backoff := c.initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}
		_ = c.machine.Transition(status.Connecting)

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("relay dial failed", zap.String("url", c.url), zap.Error(err))
			if !c.waitBackoff(ctx, &backoff) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.open = false
		c.mu.Unlock()

		_ = c.machine.Transition(status.Identifying)
		if err := c.write(Frame{
			Type:     TypeIdentify,
			UserID:   c.identity.ID,
			UserType: string(c.identity.Role),
		}); err != nil {
			c.logger.Warn("identify frame failed", zap.Error(err))
		} else {
			c.readLoop(conn)
		}

		c.mu.Lock()
		wasOpen := c.open
		c.conn = nil
		c.open = false
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("relay connection lost")
		c.publish("relay.disconnected", nil)
		if wasOpen {
			backoff = c.initialBackoff
		}
		if !c.waitBackoff(ctx, &backoff) {
			return
		}
	}
}

// readLoop processes inbound frames until the connection drops. A malformed
// frame is dropped and processing continues; it never kills the connection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		c.router.OnFrame(f)
	}
}

// onIdentified completes the handshake after the server acks the identify
// frame: the connection is open and previously joined rooms are replayed.
func (c *Client) onIdentified() {
	c.mu.Lock()
	c.open = true
	joined := append([]string(nil), c.joined...)
	c.mu.Unlock()

	_ = c.machine.Transition(status.Open)
	c.publish("relay.connected", nil)

	for _, orderID := range joined {
		if err := c.write(c.joinFrame(orderID)); err != nil {
			c.logger.Warn("join replay failed", zap.String("order_id", orderID), zap.Error(err))
			return
		}
	}
}

// SendJoin subscribes to an order's room. The order id is always recorded
// for replay; with no open connection the frame itself is silently skipped.
func (c *Client) SendJoin(orderID string) error {
	c.mu.Lock()
	if !c.seen[orderID] {
		c.seen[orderID] = true
		c.joined = append(c.joined, orderID)
	}
	ready := c.conn != nil && c.open
	c.mu.Unlock()

	if !ready {
		return nil
	}
	return c.write(c.joinFrame(orderID))
}

// SendMessage sends a chat message frame. A silent no-op with no open
// connection, so a flaky link never crashes the caller.
func (c *Client) SendMessage(orderID, content string) error {
	c.mu.Lock()
	ready := c.conn != nil && c.open
	c.mu.Unlock()

	if !ready {
		c.logger.Debug("message dropped, relay not connected", zap.String("order_id", orderID))
		return nil
	}
	return c.write(Frame{
		Type:     TypeMessage,
		OrderID:  orderID,
		Content:  content,
		UserID:   c.identity.ID,
		UserType: string(c.identity.Role),
	})
}

// Close tears down the connection and stops the retry loop. Idempotent;
// in-flight work is discarded without signaling callers.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Lock()
		conn := c.conn
		started := c.started
		c.conn = nil
		c.open = false
		c.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		}
		if started {
			<-c.done
		}
		_ = c.machine.Transition(status.Closed)
		c.logger.Info("relay connection closed")
	})
}

func (c *Client) joinFrame(orderID string) Frame {
	return Frame{
		Type:     TypeJoin,
		OrderID:  orderID,
		UserID:   c.identity.ID,
		UserType: string(c.identity.Role),
	}
}

func (c *Client) write(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.WriteJSON(f)
}

// waitBackoff sleeps for the current backoff interval with jitter, then
// doubles it up to the cap. Returns false when the context is done.
func (c *Client) waitBackoff(ctx context.Context, backoff *time.Duration) bool {
	_ = c.machine.Transition(status.Backoff)

	// Jitter in [0.8, 1.2) of the nominal interval.
	jittered := time.Duration(float64(*backoff) * (0.8 + 0.4*rand.Float64()))
	*backoff = min(*backoff*2, c.maxBackoff)

	select {
	case <-time.After(jittered):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) publish(kind string, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
