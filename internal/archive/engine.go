package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/matheus3301/resq/internal/bus"
	"github.com/matheus3301/resq/internal/room"
	"github.com/matheus3301/resq/internal/store"
	"go.uber.org/zap"
)

// Engine persists room activity into the local archive. It subscribes to
// "room.*" events on the bus and mirrors them into the store: live messages
// become idempotent upserts, a history sync replaces the room wholesale.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new archive engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to room events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("room.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "room.message":
		p, ok := evt.Payload.(room.AppendedPayload)
		if !ok {
			return
		}
		if err := e.ArchiveMessage(p, evt.Timestamp.UnixMilli()); err != nil {
			e.logger.Error("failed to archive message", zap.Error(err), zap.String("order_id", p.Message.OrderID))
		}
	case "room.synced":
		p, ok := evt.Payload.(room.SyncedPayload)
		if !ok {
			return
		}
		if err := e.ArchiveSync(p, evt.Timestamp.UnixMilli()); err != nil {
			e.logger.Error("failed to archive sync", zap.Error(err), zap.String("order_id", p.OrderID))
		} else {
			e.logger.Info("room archive rebased", zap.String("order_id", p.OrderID), zap.Int("messages", len(p.Messages)))
		}
	}
}

// ArchiveMessage persists a single appended message (idempotent).
func (e *Engine) ArchiveMessage(p room.AppendedPayload, ts int64) error {
	m := p.Message
	if err := e.db.UpsertRoom(&store.Room{
		OrderID:       m.OrderID,
		Label:         m.FromLabel,
		LastMessageAt: ts,
		LastPreview:   truncate(m.Content, 100),
	}); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	if err := e.db.UpsertMessage(&store.Message{
		OrderID:   m.OrderID,
		Seq:       p.Seq,
		FromID:    m.FromID,
		FromLabel: m.FromLabel,
		Body:      m.Content,
		Timestamp: ts,
	}); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}

	return e.db.SetCheckpoint(checkpointKey(m.OrderID), strconv.Itoa(p.Seq))
}

// ArchiveSync replaces a room's archived messages with the synced set.
func (e *Engine) ArchiveSync(p room.SyncedPayload, ts int64) error {
	msgs := make([]store.Message, 0, len(p.Messages))
	for i, m := range p.Messages {
		msgs = append(msgs, store.Message{
			OrderID:   p.OrderID,
			Seq:       i,
			FromID:    m.FromID,
			FromLabel: m.FromLabel,
			Body:      m.Content,
			Timestamp: ts,
		})
	}

	if err := e.db.ReplaceRoomMessages(p.OrderID, msgs); err != nil {
		return fmt.Errorf("replace messages: %w", err)
	}

	roomRow := &store.Room{OrderID: p.OrderID, LastMessageAt: ts}
	if n := len(p.Messages); n > 0 {
		last := p.Messages[n-1]
		roomRow.Label = last.FromLabel
		roomRow.LastPreview = truncate(last.Content, 100)
	}
	if err := e.db.UpsertRoom(roomRow); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	return e.db.SetCheckpoint(checkpointKey(p.OrderID), strconv.Itoa(len(p.Messages)-1))
}

func checkpointKey(orderID string) string {
	return "archive.seq." + orderID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
