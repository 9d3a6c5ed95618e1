package views

import (
	"fmt"

	"github.com/matheus3301/resq/internal/room"
	"github.com/rivo/tview"
)

// RoomList is the main room list view (K9s-inspired table).
type RoomList struct {
	*tview.Table
	rooms      []room.Info
	selectedFn func() (int, int)
}

// NewRoomList creates a new room list table.
func NewRoomList() *RoomList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Rooms ")

	rl := &RoomList{Table: table}
	rl.selectedFn = table.GetSelection
	return rl
}

// Update refreshes the room list with new data.
func (rl *RoomList) Update(rooms []room.Info) {
	rl.rooms = rooms
	rl.Clear()

	// Header row.
	rl.SetCell(0, 0, tview.NewTableCell(" Room").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	rl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	rl.SetCell(0, 2, tview.NewTableCell(" Unread").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, r := range rooms {
		row := i + 1
		name := r.OrderID
		unread := ""
		if r.Unread > 0 {
			name = "* " + name
			unread = fmt.Sprintf("(%d)", r.Unread)
		}

		rl.SetCell(row, 0, tview.NewTableCell(" "+name).SetMaxWidth(30).SetExpansion(1))
		rl.SetCell(row, 1, tview.NewTableCell(" "+sanitizeForTerminal(r.LastPreview)).SetMaxWidth(40).SetExpansion(2))
		rl.SetCell(row, 2, tview.NewTableCell(" "+unread).SetMaxWidth(8))
	}
}

// SelectedRoom returns the order id of the currently selected room.
func (rl *RoomList) SelectedRoom() string {
	row, _ := rl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(rl.rooms) {
		return rl.rooms[idx].OrderID
	}
	return ""
}
