package room

import "context"

// GeneralOrderID is the sentinel room for frames carrying no order id.
const GeneralOrderID = "general"

// Message is a single chat message in a room. Immutable once appended;
// ordering is arrival order, there is no timestamp-based reordering.
type Message struct {
	OrderID   string
	FromID    string
	FromLabel string
	Content   string
}

// Info is a summary of a room for list views.
type Info struct {
	OrderID      string
	Unread       int
	MessageCount int
	LastPreview  string
}

// FrameSender sends protocol frames to the relay server. Implemented by
// the relay client; sends are silent no-ops while the connection is down.
type FrameSender interface {
	SendJoin(orderID string) error
	SendMessage(orderID, content string) error
}

// Syncer reconciles a room against the backend history after a join.
type Syncer interface {
	Sync(ctx context.Context, orderID string)
}

// AppendedPayload is the bus payload for room.message events.
type AppendedPayload struct {
	Message Message
	Seq     int
	Unread  int
}

// SyncedPayload is the bus payload for room.synced events.
type SyncedPayload struct {
	OrderID  string
	Messages []Message
}
