package history

import (
	"context"

	"github.com/matheus3301/resq/internal/rest"
	"github.com/matheus3301/resq/internal/room"
	"go.uber.org/zap"
)

// Backend is the slice of the REST client the syncer needs.
type Backend interface {
	OrderMessages(ctx context.Context, orderID string) ([]rest.HistoryMessage, error)
	MarkOrderRead(ctx context.Context, orderID string) error
}

// Syncer reconciles a room with the backend after a join: fetch the
// authoritative history, merge it into the room, mark the room read
// server-side, then reset the local unread counter.
type Syncer struct {
	backend  Backend
	registry *room.Registry
	logger   *zap.Logger
}

// NewSyncer creates a history syncer.
func NewSyncer(backend Backend, registry *room.Registry, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{backend: backend, registry: registry, logger: logger}
}

// Sync runs one reconciliation pass for a room. A failed fetch logs and
// leaves local state untouched; there is no retry. A failed mark-read still
// applies the fetched history — the server's unread state catches up on the
// next join.
func (s *Syncer) Sync(ctx context.Context, orderID string) {
	msgs, err := s.backend.OrderMessages(ctx, orderID)
	if err != nil {
		s.logger.Warn("history fetch failed", zap.String("order_id", orderID), zap.Error(err))
		s.registry.CancelSync(orderID)
		return
	}

	history := make([]room.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, room.Message{
			OrderID:   orderID,
			FromID:    m.FromID,
			FromLabel: m.From,
			Content:   m.Content,
		})
	}
	s.registry.ApplyHistory(orderID, history)

	if err := s.backend.MarkOrderRead(ctx, orderID); err != nil {
		s.logger.Warn("mark read failed", zap.String("order_id", orderID), zap.Error(err))
	}
	s.registry.MarkRead(orderID)

	s.logger.Info("room synced", zap.String("order_id", orderID), zap.Int("messages", len(history)))
}
