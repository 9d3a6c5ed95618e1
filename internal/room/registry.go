package room

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/resq/internal/bus"
	"go.uber.org/zap"
)

// ErrEmptyContent is returned by SendMessage for empty or all-whitespace content.
var ErrEmptyContent = errors.New("message content is empty")

type state struct {
	messages []Message
	unread   int

	// syncStart is the index of the first live message appended after a
	// history sync began. Set to -1 when no sync is in flight. Messages at
	// or after this index survive the history merge, so a frame received in
	// the sync race window is never lost.
	syncStart int
}

// Registry owns all per-order room state. It is the single writer for the
// room map; every consumer (relay router, history syncer, TUI) goes through
// it, and access is mutex-guarded since callbacks arrive on multiple
// goroutines. Rooms are created lazily and live for the process lifetime.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*state
	sender FrameSender
	syncer Syncer
	bus    *bus.Bus
	logger *zap.Logger
}

// NewRegistry creates an empty room registry. The frame sender and history
// syncer are wired afterwards via SetSender/SetSyncer: both sit on the other
// side of a construction cycle (the sender's router appends into this
// registry, the syncer applies history back into it).
func NewRegistry(b *bus.Bus, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:  make(map[string]*state),
		bus:    b,
		logger: logger,
	}
}

// SetSender wires the relay frame sender.
func (r *Registry) SetSender(s FrameSender) {
	r.mu.Lock()
	r.sender = s
	r.mu.Unlock()
}

// SetSyncer wires the history syncer.
func (r *Registry) SetSyncer(s Syncer) {
	r.mu.Lock()
	r.syncer = s
	r.mu.Unlock()
}

func (r *Registry) room(orderID string) *state {
	st, ok := r.rooms[orderID]
	if !ok {
		st = &state{syncStart: -1}
		r.rooms[orderID] = st
	}
	return st
}

// Join subscribes to an order's room: sends a join frame, then kicks off a
// history sync in the background. The caller does not block on the sync;
// live messages arriving while it is in flight are appended and retained.
func (r *Registry) Join(ctx context.Context, orderID string) {
	r.mu.Lock()
	st := r.room(orderID)
	st.syncStart = len(st.messages)
	sender := r.sender
	syncer := r.syncer
	r.mu.Unlock()

	if sender != nil {
		if err := sender.SendJoin(orderID); err != nil {
			r.logger.Warn("join frame not sent", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	if syncer != nil {
		go syncer.Sync(ctx, orderID)
	}
}

// SendMessage sends a chat message frame for the given room. Content must be
// non-empty after trimming; nothing is sent and no state changes otherwise.
// There is no optimistic local append: the message becomes visible when the
// server echoes it back through the router.
func (r *Registry) SendMessage(orderID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	r.mu.Lock()
	sender := r.sender
	r.mu.Unlock()
	if sender == nil {
		return nil
	}
	return sender.SendMessage(orderID, content)
}

// Append records a received message in arrival order and increments the
// room's unread counter. Returns the message's sequence number.
func (r *Registry) Append(msg Message) int {
	r.mu.Lock()
	st := r.room(msg.OrderID)
	st.messages = append(st.messages, msg)
	st.unread++
	seq := len(st.messages) - 1
	unread := st.unread
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "room.message",
			Timestamp: time.Now(),
			Payload:   AppendedPayload{Message: msg, Seq: seq, Unread: unread},
		})
	}
	return seq
}

// ApplyHistory replaces the room's message list with the authoritative
// backend history, keeping any live messages appended since the sync began.
// The unread counter is not touched here; MarkRead completes the sync.
func (r *Registry) ApplyHistory(orderID string, history []Message) {
	r.mu.Lock()
	st := r.room(orderID)
	var tail []Message
	if st.syncStart >= 0 && st.syncStart < len(st.messages) {
		tail = st.messages[st.syncStart:]
	}
	st.messages = append(append([]Message(nil), history...), tail...)
	st.syncStart = -1
	merged := append([]Message(nil), st.messages...)
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "room.synced",
			Timestamp: time.Now(),
			Payload:   SyncedPayload{OrderID: orderID, Messages: merged},
		})
	}
}

// CancelSync clears the in-flight sync marker after a failed history fetch,
// leaving messages and unread count untouched.
func (r *Registry) CancelSync(orderID string) {
	r.mu.Lock()
	r.room(orderID).syncStart = -1
	r.mu.Unlock()
}

// MarkRead resets the room's unread counter to zero. This is the only way
// the counter decreases; passive receipt only ever increments it.
func (r *Registry) MarkRead(orderID string) {
	r.mu.Lock()
	r.room(orderID).unread = 0
	r.mu.Unlock()
}

// Unread returns the unread count for a room, zero for unknown rooms.
func (r *Registry) Unread(orderID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[orderID]
	if !ok {
		return 0
	}
	return st.unread
}

// Snapshot returns a copy of a room's messages in arrival order.
func (r *Registry) Snapshot(orderID string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[orderID]
	if !ok {
		return nil
	}
	return append([]Message(nil), st.messages...)
}

// List returns a summary of every known room, sorted by order id with the
// general room first.
func (r *Registry) List() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.rooms))
	for id, st := range r.rooms {
		info := Info{
			OrderID:      id,
			Unread:       st.unread,
			MessageCount: len(st.messages),
		}
		if n := len(st.messages); n > 0 {
			info.LastPreview = st.messages[n-1].Content
		}
		infos = append(infos, info)
	}
	r.mu.Unlock()

	slices.SortFunc(infos, func(a, b Info) int {
		if a.OrderID == GeneralOrderID && b.OrderID != GeneralOrderID {
			return -1
		}
		if b.OrderID == GeneralOrderID && a.OrderID != GeneralOrderID {
			return 1
		}
		return strings.Compare(a.OrderID, b.OrderID)
	})
	return infos
}
