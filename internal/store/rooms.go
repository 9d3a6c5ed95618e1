package store

import (
	"database/sql"
	"time"
)

// UpsertRoom inserts or updates a room record. The last-message fields only
// move forward so replays of old events cannot roll a room back.
func (db *DB) UpsertRoom(r *Room) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO rooms (order_id, label, last_message_at, last_preview, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO UPDATE SET
			label = CASE WHEN excluded.label != '' THEN excluded.label ELSE rooms.label END,
			last_message_at = MAX(rooms.last_message_at, excluded.last_message_at),
			last_preview = CASE WHEN excluded.last_message_at >= rooms.last_message_at THEN excluded.last_preview ELSE rooms.last_preview END,
			updated_at = excluded.updated_at`,
		r.OrderID, r.Label, r.LastMessageAt, r.LastPreview, now)
	return err
}

// ListRooms returns rooms sorted by last message timestamp descending.
func (db *DB) ListRooms(limit, offset int) ([]Room, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT order_id, label, last_message_at, last_preview
		FROM rooms
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.OrderID, &r.Label, &r.LastMessageAt, &r.LastPreview); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// GetRoom returns a single room by order ID, or nil if unknown.
func (db *DB) GetRoom(orderID string) (*Room, error) {
	var r Room
	err := db.QueryRow(`
		SELECT order_id, label, last_message_at, last_preview
		FROM rooms
		WHERE order_id = ?`, orderID).
		Scan(&r.OrderID, &r.Label, &r.LastMessageAt, &r.LastPreview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
