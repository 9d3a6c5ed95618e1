package relay

import (
	"time"

	"github.com/matheus3301/resq/internal/auth"
	"github.com/matheus3301/resq/internal/bus"
	"github.com/matheus3301/resq/internal/room"
	"go.uber.org/zap"
)

// NotifyMessage is the bus payload for notify.message events: a chat message
// from someone else arrived and the UI should offer to open that room.
type NotifyMessage struct {
	OrderID string
	From    string
	Content string
}

// Router classifies inbound frames by type and dispatches each to the room
// registry and the bus. Dispatch is synchronous per frame; the single read
// loop guarantees frames are processed strictly in arrival order.
type Router struct {
	registry   *room.Registry
	identity   auth.Identity
	bus        *bus.Bus
	logger     *zap.Logger
	identified func()
}

// NewRouter creates a router for the given local identity.
func NewRouter(registry *room.Registry, identity auth.Identity, b *bus.Bus, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry: registry,
		identity: identity,
		bus:      b,
		logger:   logger,
	}
}

// SetIdentifiedFunc registers the callback invoked on the identify ack.
// The client uses it to complete the connection handshake.
func (r *Router) SetIdentifiedFunc(fn func()) {
	r.identified = fn
}

// OnFrame dispatches a single inbound frame. Unknown types are ignored.
func (r *Router) OnFrame(f Frame) {
	switch f.Type {
	case TypeIdentify:
		if r.identified != nil {
			r.identified()
		}
	case TypeMessage:
		r.onMessage(f)
	case TypeReservationCancelled:
		if r.bus != nil {
			r.bus.Publish(bus.Event{
				Kind:      "notify.reservation_cancelled",
				Timestamp: time.Now(),
				Payload:   f.Message,
			})
		}
	default:
		r.logger.Debug("ignoring unknown frame type", zap.String("type", f.Type))
	}
}

func (r *Router) onMessage(f Frame) {
	orderID := f.OrderID
	if orderID == "" {
		orderID = room.GeneralOrderID
	}

	r.registry.Append(room.Message{
		OrderID:   orderID,
		FromID:    f.FromID,
		FromLabel: f.From,
		Content:   f.Content,
	})

	// Our own echoed messages are appended but never notified.
	if f.FromID == r.identity.ID {
		return
	}
	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "notify.message",
			Timestamp: time.Now(),
			Payload: NotifyMessage{
				OrderID: orderID,
				From:    f.From,
				Content: f.Content,
			},
		})
	}
}
