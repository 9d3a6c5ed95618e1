package store

import (
	"fmt"
	"time"
)

// UpsertMessage inserts or updates a message (idempotent on order_id + seq).
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (order_id, seq, from_id, from_label, body, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id, seq) DO UPDATE SET
			from_id = excluded.from_id,
			from_label = excluded.from_label,
			body = excluded.body`,
		m.OrderID, m.Seq, m.FromID, m.FromLabel, m.Body, m.Timestamp, now)
	return err
}

// ReplaceRoomMessages swaps a room's archived messages for the given set in
// one transaction. Used when a history sync rebases the room.
func (db *DB) ReplaceRoomMessages(orderID string, msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("clear room: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, m := range msgs {
		ts := m.Timestamp
		if ts == 0 {
			ts = now
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (order_id, seq, from_id, from_label, body, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, m.Seq, m.FromID, m.FromLabel, m.Body, ts, now); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ListMessages returns a room's messages in conversation order.
func (db *DB) ListMessages(orderID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Query(`
		SELECT id, order_id, seq, from_id, from_label, body, timestamp
		FROM messages
		WHERE order_id = ?
		ORDER BY seq ASC
		LIMIT ?`, orderID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.Seq, &m.FromID, &m.FromLabel, &m.Body, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns how many messages a room has archived.
func (db *DB) MessageCount(orderID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE order_id = ?`, orderID).Scan(&n)
	return n, err
}
