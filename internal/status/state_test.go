package status

import (
	"testing"

	"github.com/matheus3301/resq/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Disconnected, Closed},
		{Connecting, Identifying},
		{Connecting, Backoff},
		{Identifying, Open},
		{Identifying, Backoff},
		{Open, Backoff},
		{Open, Closed},
		{Backoff, Connecting},
		{Backoff, Closed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Open); err == nil {
		t.Error("Transition(DISCONNECTED -> OPEN) should fail")
	}
}

func TestSelfTransitionIsNoOp(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	walkTo(t, m, Closed)
	for i := 0; i < 2; i++ {
		if err := m.Transition(Closed); err != nil {
			t.Fatalf("repeated Transition(CLOSED) error = %v", err)
		}
	}
	if m.Current() != Closed {
		t.Errorf("state = %s, want CLOSED", m.Current())
	}

	// Only the first CLOSED transition emits an event.
	n := 0
	for len(ch) > 0 {
		evt := <-ch
		if change, ok := evt.Payload.(StatusChange); ok && change.To == Closed {
			n++
		}
	}
	if n != 1 {
		t.Errorf("got %d CLOSED transition events, want 1", n)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Closed)
	if err := m.Transition(Connecting); err == nil {
		t.Error("Transition(CLOSED -> CONNECTING) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "session.status_changed" {
		t.Errorf("event kind = %q, want session.status_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
	}
}

// TestConnectLifecycle simulates a clean first connection:
// DISCONNECTED -> CONNECTING -> IDENTIFYING -> OPEN
func TestConnectLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Connecting, Identifying, Open}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Open {
		t.Errorf("final state = %s, want OPEN", m.Current())
	}
}

// TestReconnectCycle verifies the backoff loop after a dropped connection:
// OPEN -> BACKOFF -> CONNECTING -> IDENTIFYING -> OPEN
func TestReconnectCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Open)

	steps := []State{Backoff, Connecting, Identifying, Open}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Open {
		t.Errorf("final state = %s, want OPEN", m.Current())
	}
}

// TestOpenCannotSkipBackoff verifies that a dropped connection cannot jump
// straight back to CONNECTING without going through BACKOFF, so every
// reconnect attempt is subject to the retry policy.
func TestOpenCannotSkipBackoff(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Open)

	if err := m.Transition(Connecting); err == nil {
		t.Fatal("Transition(OPEN -> CONNECTING) should fail; must go through BACKOFF")
	}
	if m.Current() != Open {
		t.Errorf("state = %s, want OPEN (should not have changed)", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Identifying:  {Connecting, Identifying},
		Open:         {Connecting, Identifying, Open},
		Backoff:      {Connecting, Backoff},
		Closed:       {Closed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo %s: transition to %s failed: %v", target, s, err)
		}
	}
}
