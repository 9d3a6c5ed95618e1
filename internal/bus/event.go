package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kind namespaces in use:
//
//	relay.*   connection lifecycle (relay.connected, relay.disconnected)
//	room.*    room state changes (room.message, room.synced)
//	notify.*  user-facing notifications (notify.message, notify.reservation_cancelled)
//	session.* identity and status changes (session.status_changed)
type Event struct {
	ID        string // assigned on publish when empty
	Kind      string
	Timestamp time.Time
	Payload   any
}
