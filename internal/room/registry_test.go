package room

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/resq/internal/bus"
)

type sentMessage struct {
	orderID string
	content string
}

type fakeSender struct {
	mu    sync.Mutex
	joins []string
	msgs  []sentMessage
}

func (f *fakeSender) SendJoin(orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, orderID)
	return nil
}

func (f *fakeSender) SendMessage(orderID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sentMessage{orderID, content})
	return nil
}

type fakeSyncer struct {
	mu     sync.Mutex
	orders []string
}

func (f *fakeSyncer) Sync(_ context.Context, orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, orderID)
}

func newTestRegistry(b *bus.Bus) *Registry {
	r := NewRegistry(b, nil)
	r.SetSender(&fakeSender{})
	return r
}

func TestAppendOrdering(t *testing.T) {
	r := newTestRegistry(nil)

	for i := 0; i < 5; i++ {
		r.Append(Message{OrderID: "order42", FromID: "s1", Content: fmt.Sprintf("msg-%d", i)})
	}

	msgs := r.Snapshot("order42")
	if len(msgs) != 5 {
		t.Fatalf("got %d messages, want 5", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("msg-%d", i); m.Content != want {
			t.Errorf("messages[%d].Content = %q, want %q (arrival order)", i, m.Content, want)
		}
	}
}

func TestRoomIsolation(t *testing.T) {
	r := newTestRegistry(nil)

	r.Append(Message{OrderID: "order-a", Content: "for a"})
	r.Append(Message{OrderID: "order-b", Content: "for b"})

	a := r.Snapshot("order-a")
	if len(a) != 1 || a[0].Content != "for a" {
		t.Errorf("room a = %v, want only its own message", a)
	}
	b := r.Snapshot("order-b")
	if len(b) != 1 || b[0].Content != "for b" {
		t.Errorf("room b = %v, want only its own message", b)
	}
}

func TestUnreadLifecycle(t *testing.T) {
	r := newTestRegistry(nil)

	if got := r.Unread("unknown"); got != 0 {
		t.Errorf("Unread(unknown) = %d, want 0", got)
	}

	// Passive receipt only increments.
	prev := 0
	for i := 0; i < 3; i++ {
		r.Append(Message{OrderID: "order42", Content: "x"})
		got := r.Unread("order42")
		if got != prev+1 {
			t.Errorf("Unread = %d after append, want %d", got, prev+1)
		}
		prev = got
	}

	// Explicit read resets to exactly zero.
	r.MarkRead("order42")
	if got := r.Unread("order42"); got != 0 {
		t.Errorf("Unread after MarkRead = %d, want 0", got)
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	sender := &fakeSender{}
	r := NewRegistry(nil, nil)
	r.SetSender(sender)

	for _, content := range []string{"", "   ", "\n\t"} {
		if err := r.SendMessage("order42", content); err != ErrEmptyContent {
			t.Errorf("SendMessage(%q) error = %v, want ErrEmptyContent", content, err)
		}
	}
	if len(sender.msgs) != 0 {
		t.Errorf("sent %d frames, want 0", len(sender.msgs))
	}
	// No partial state mutation: the room must not have been created.
	if infos := r.List(); len(infos) != 0 {
		t.Errorf("rooms = %v, want none", infos)
	}
}

func TestSendMessage(t *testing.T) {
	sender := &fakeSender{}
	r := NewRegistry(nil, nil)
	r.SetSender(sender)

	if err := r.SendMessage("order42", "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(sender.msgs) != 1 || sender.msgs[0] != (sentMessage{"order42", "hello"}) {
		t.Errorf("sent frames = %v, want one message frame for order42", sender.msgs)
	}
	// No optimistic append: the message shows up only via the router echo.
	if msgs := r.Snapshot("order42"); len(msgs) != 0 {
		t.Errorf("local messages = %v, want none before server echo", msgs)
	}
}

func TestJoinSendsFrameAndTriggersSync(t *testing.T) {
	sender := &fakeSender{}
	syncer := &fakeSyncer{}
	r := NewRegistry(nil, nil)
	r.SetSender(sender)
	r.SetSyncer(syncer)

	r.Join(context.Background(), "order42")

	if len(sender.joins) != 1 || sender.joins[0] != "order42" {
		t.Errorf("join frames = %v, want [order42]", sender.joins)
	}

	deadline := time.After(time.Second)
	for {
		syncer.mu.Lock()
		n := len(syncer.orders)
		syncer.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for sync trigger")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestApplyHistoryKeepsLiveTail(t *testing.T) {
	r := newTestRegistry(nil)
	r.SetSyncer(&fakeSyncer{})

	// Join marks the sync start; a live message lands while the fetch is in flight.
	r.Join(context.Background(), "order42")
	r.Append(Message{OrderID: "order42", FromID: "s1", Content: "live"})

	r.ApplyHistory("order42", []Message{
		{OrderID: "order42", Content: "old-1"},
		{OrderID: "order42", Content: "old-2"},
	})

	msgs := r.Snapshot("order42")
	want := []string{"old-1", "old-2", "live"}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("messages[%d].Content = %q, want %q", i, msgs[i].Content, w)
		}
	}
}

func TestApplyHistoryReplacesStaleLocal(t *testing.T) {
	r := newTestRegistry(nil)
	r.SetSyncer(&fakeSyncer{})

	// Messages present before the join are replaced by the server history.
	r.Append(Message{OrderID: "order42", Content: "stale"})
	r.Join(context.Background(), "order42")
	r.ApplyHistory("order42", []Message{{OrderID: "order42", Content: "authoritative"}})

	msgs := r.Snapshot("order42")
	if len(msgs) != 1 || msgs[0].Content != "authoritative" {
		t.Errorf("messages = %v, want only the authoritative history", msgs)
	}
}

func TestCancelSyncLeavesStateUntouched(t *testing.T) {
	r := newTestRegistry(nil)
	r.SetSyncer(&fakeSyncer{})

	r.Append(Message{OrderID: "order42", Content: "kept"})
	r.Join(context.Background(), "order42")
	r.CancelSync("order42")

	msgs := r.Snapshot("order42")
	if len(msgs) != 1 || msgs[0].Content != "kept" {
		t.Errorf("messages = %v, want untouched local state", msgs)
	}
	if got := r.Unread("order42"); got != 1 {
		t.Errorf("Unread = %d, want 1 (untouched)", got)
	}
}

func TestAppendPublishesBusEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("room.", 10)
	defer unsub()

	r := newTestRegistry(b)
	r.Append(Message{OrderID: "order42", FromID: "s1", Content: "hi"})

	select {
	case evt := <-ch:
		if evt.Kind != "room.message" {
			t.Fatalf("event kind = %q, want room.message", evt.Kind)
		}
		p, ok := evt.Payload.(AppendedPayload)
		if !ok {
			t.Fatalf("payload type = %T, want AppendedPayload", evt.Payload)
		}
		if p.Seq != 0 || p.Unread != 1 || p.Message.Content != "hi" {
			t.Errorf("payload = %+v, want seq 0, unread 1, content hi", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for room.message event")
	}
}

func TestListSummaries(t *testing.T) {
	r := newTestRegistry(nil)
	r.Append(Message{OrderID: "order42", Content: "first"})
	r.Append(Message{OrderID: "order42", Content: "second"})

	infos := r.List()
	if len(infos) != 1 {
		t.Fatalf("got %d rooms, want 1", len(infos))
	}
	info := infos[0]
	if info.OrderID != "order42" || info.Unread != 2 || info.MessageCount != 2 || info.LastPreview != "second" {
		t.Errorf("info = %+v, want order42 with 2 unread and preview %q", info, "second")
	}
}

func TestListOrderIsStable(t *testing.T) {
	r := newTestRegistry(nil)
	r.Append(Message{OrderID: "zzz", Content: "a"})
	r.Append(Message{OrderID: GeneralOrderID, Content: "b"})
	r.Append(Message{OrderID: "aaa", Content: "c"})

	infos := r.List()
	got := make([]string, len(infos))
	for i, info := range infos {
		got[i] = info.OrderID
	}
	want := []string{GeneralOrderID, "aaa", "zzz"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
