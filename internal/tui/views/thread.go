package views

import (
	"fmt"

	"github.com/matheus3301/resq/internal/room"
	"github.com/rivo/tview"
)

// Thread displays the messages of a single room.
type Thread struct {
	*tview.TextView
	selfID string
}

// NewThread creates a new message thread view.
func NewThread(selfID string) *Thread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &Thread{TextView: tv, selfID: selfID}
}

// SetRoom updates the title with the room name.
func (t *Thread) SetRoom(orderID string) {
	t.SetTitle(fmt.Sprintf(" %s ", orderID))
}

// Update refreshes the thread with the room's messages, oldest first.
func (t *Thread) Update(msgs []room.Message) {
	t.Clear()

	for _, m := range msgs {
		sender := m.FromLabel
		if sender == "" {
			sender = m.FromID
		}
		if m.FromID != "" && m.FromID == t.selfID {
			sender = "You"
		}
		if sender == "" {
			sender = "?"
		}

		line := fmt.Sprintf("[::b]%s[-:-:-]\n%s\n\n", sanitizeForTerminal(sender), sanitizeForTerminal(m.Content))
		_, _ = fmt.Fprint(t, line)
	}

	t.ScrollToEnd()
}
