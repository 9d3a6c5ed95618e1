package tui

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/resq/internal/auth"
	"github.com/matheus3301/resq/internal/bus"
	"github.com/matheus3301/resq/internal/relay"
	"github.com/matheus3301/resq/internal/room"
	"github.com/matheus3301/resq/internal/status"
	"github.com/matheus3301/resq/internal/tui/views"
	"github.com/rivo/tview"
)

// App is the main TUI application shell. It renders the room registry and
// reacts to bus events; all protocol work happens in the relay client and
// the syncer.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	registry  *room.Registry
	bus       *bus.Bus
	flash     *Flash
	statusBar *views.StatusBar
	roomList  *views.RoomList
	thread    *views.Thread
	composer  *views.Composer

	mu     sync.Mutex
	active string // order id of the open room, empty on the list page

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(registry *room.Registry, b *bus.Bus, identity auth.Identity, profileName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		registry:  registry,
		bus:       b,
		flash:     &Flash{},
		statusBar: views.NewStatusBar(),
		roomList:  views.NewRoomList(),
		thread:    views.NewThread(identity.ID),
		composer:  views.NewComposer(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetProfile(profileName)
	a.statusBar.SetStatus(string(status.Disconnected))
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.roomList.SetSelectedFunc(func(row, col int) {
		orderID := a.roomList.SelectedRoom()
		if orderID != "" {
			a.openRoom(orderID)
		}
	})

	a.composer.SetOnSend(func(text string) {
		a.mu.Lock()
		orderID := a.active
		a.mu.Unlock()
		if orderID == "" {
			return
		}
		// No local echo: the thread updates when the relay echoes the
		// message back.
		if err := a.registry.SendMessage(orderID, text); err != nil {
			a.flash.Set("Send failed: "+err.Error(), 5*time.Second)
			a.statusBar.SetFlash(a.flash.Get())
		}
	})
}

func (a *App) setupLayout() {
	threadFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage("rooms", a.roomList, true, true)
	a.pages.AddPage("thread", threadFlex, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape && currentPage == "thread" {
			a.closeRoom()
			return nil
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case 'q':
				a.app.Stop()
				return nil
			case 'i':
				if currentPage == "thread" {
					a.app.SetFocus(a.composer.InputField)
					return nil
				}
			}
		}

		return event
	})
}

// openRoom joins a room and switches to its thread. Joining is idempotent
// and kicks off a history sync that resets the unread counter.
func (a *App) openRoom(orderID string) {
	a.mu.Lock()
	a.active = orderID
	a.mu.Unlock()

	a.registry.Join(a.ctx, orderID)
	a.registry.MarkRead(orderID)

	a.thread.SetRoom(orderID)
	a.thread.Update(a.registry.Snapshot(orderID))
	a.pages.SwitchToPage("thread")
	a.app.SetFocus(a.composer.InputField)
}

func (a *App) closeRoom() {
	a.mu.Lock()
	a.active = ""
	a.mu.Unlock()

	a.roomList.Update(a.registry.List())
	a.pages.SwitchToPage("rooms")
	a.app.SetFocus(a.roomList)
}

// Run starts the TUI application and blocks until quit.
func (a *App) Run() error {
	a.roomList.Update(a.registry.List())
	go a.eventLoop()
	return a.app.Run()
}

// eventLoop refreshes the UI from bus events. Subscribing to the empty
// prefix receives everything.
func (a *App) eventLoop() {
	ch, unsub := a.bus.Subscribe("", 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			a.handleEvent(evt)
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case "room.message", "room.synced":
		a.refresh()
	case "notify.message":
		if p, ok := evt.Payload.(relay.NotifyMessage); ok {
			a.mu.Lock()
			active := a.active
			a.mu.Unlock()
			if p.OrderID != active {
				from := p.From
				if from == "" {
					from = p.OrderID
				}
				a.flash.Set("New message from "+from, 5*time.Second)
			}
		}
		a.refresh()
	case "notify.reservation_cancelled":
		if msg, ok := evt.Payload.(string); ok && msg != "" {
			a.flash.Set(msg, 10*time.Second)
		} else {
			a.flash.Set("A reservation was cancelled", 10*time.Second)
		}
		a.refresh()
	case "session.status_changed":
		if p, ok := evt.Payload.(status.StatusChange); ok {
			a.statusBar.SetStatus(string(p.To))
		}
		a.refresh()
	}
}

// refresh redraws the visible page from the registry.
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		active := a.active
		a.mu.Unlock()

		if active != "" {
			a.thread.Update(a.registry.Snapshot(active))
			// Reading the open room keeps its counter at zero.
			a.registry.MarkRead(active)
		} else {
			a.roomList.Update(a.registry.List())
		}
		a.statusBar.SetFlash(a.flash.Get())
	})
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
