// Package tui is the staff terminal board: zones of the selected branch with
// their bookings, the happy-hour emphasis and the keyboard actions.
package tui

import (
	"context"
	"fmt"
	"time"

	"kanban/internal/board"
	"kanban/internal/clock"
	"kanban/internal/model"
	"kanban/internal/session"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	renderInterval = time.Second
	actionTimeout  = 15 * time.Second
)

// Board is the mirror and the mutations the screen drives.
type Board interface {
	Zones(branch model.Branch) []model.Zone
	Bookings(branch model.Branch) []model.Booking
	Counts(branch model.Branch) model.BranchCounts
	LastUpdate() time.Time
	CreateBooking(ctx context.Context, in board.NewBooking) (model.Booking, error)
	EditBooking(ctx context.Context, id string, in board.BookingEdit) (model.Booking, error)
	ToggleActive(ctx context.Context, id string) (model.Booking, error)
	MoveBooking(ctx context.Context, id string, zoneID int64) error
	DeleteBooking(ctx context.Context, id string) error
	ToggleCleanliness(ctx context.Context, zoneID int64) (bool, error)
}

// Refresher controls the poller.
type Refresher interface {
	SetEnabled(enabled bool)
	Enabled() bool
	RefreshNow(ctx context.Context) error
}

// Session is the persisted view state.
type Session interface {
	BoardBranch() model.Branch
	SetBoardBranch(ctx context.Context, b model.Branch) error
	Draft() session.Draft
	SetDraft(ctx context.Context, d session.Draft) error
	TimeOverride() (time.Time, bool)
}

type Options struct {
	Board   Board
	Poller  Refresher
	Session Session
	Clock   clock.Clock
	// Alerts delivers reminder texts to show on screen. Optional.
	Alerts <-chan string
	// Export writes the board to a file and returns its path. Optional.
	Export func() (string, error)
}

type tickMsg time.Time

type alertMsg string

type resultMsg struct {
	status string
	err    error
}

// App is the bubbletea model of the board.
type App struct {
	opts Options

	width  int
	height int

	zoneIdx    int
	bookingIdx int
	moving     *model.Booking
	editing    *model.Booking
	form       textinput.Model
	formOpen   bool
	status     string
	alert      string
	err        error
}

func New(opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	form := textinput.New()
	form.Placeholder = formPlaceholder
	form.CharLimit = 200
	form.Width = 70
	return &App{opts: opts, form: form, width: 120, height: 40}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.tick(), a.waitAlert())
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (a *App) waitAlert() tea.Cmd {
	if a.opts.Alerts == nil {
		return nil
	}
	return func() tea.Msg {
		text, ok := <-a.opts.Alerts
		if !ok {
			return nil
		}
		return alertMsg(text)
	}
}

// run executes a board action off the UI loop and reports its outcome.
func (a *App) run(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return resultMsg{err: err}
		}
		return resultMsg{status: done}
	}
}

func (a *App) branch() model.Branch {
	return a.opts.Session.BoardBranch()
}

func (a *App) zones() []model.Zone {
	zones := a.opts.Board.Zones(a.branch())
	model.SortZones(zones)
	return zones
}

func (a *App) currentZone() (model.Zone, bool) {
	zones := a.zones()
	if len(zones) == 0 {
		return model.Zone{}, false
	}
	a.zoneIdx = clamp(a.zoneIdx, len(zones))
	return zones[a.zoneIdx], true
}

func (a *App) zoneBookings(zoneID int64) []model.Booking {
	return sortByTime(model.BookingsAt(a.opts.Board.Bookings(a.branch()), zoneID))
}

func (a *App) currentBooking() (model.Booking, bool) {
	zone, ok := a.currentZone()
	if !ok {
		return model.Booking{}, false
	}
	list := a.zoneBookings(zone.ID)
	if len(list) == 0 {
		return model.Booking{}, false
	}
	a.bookingIdx = clamp(a.bookingIdx, len(list))
	return list[a.bookingIdx], true
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		return a, a.tick()

	case alertMsg:
		a.alert = string(msg)
		return a, a.waitAlert()

	case resultMsg:
		a.err = msg.err
		if msg.err == nil {
			a.status = msg.status
		}
		return a, nil

	case tea.KeyMsg:
		if a.formOpen {
			return a.updateForm(msg)
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return a, tea.Quit

	case "esc":
		a.moving = nil
		a.alert = ""
		a.err = nil

	case "left", "h":
		if a.zoneIdx > 0 {
			a.zoneIdx--
			a.bookingIdx = 0
		}
	case "right", "l":
		if a.zoneIdx < len(a.zones())-1 {
			a.zoneIdx++
			a.bookingIdx = 0
		}
	case "up", "k":
		if a.bookingIdx > 0 {
			a.bookingIdx--
		}
	case "down", "j":
		if zone, ok := a.currentZone(); ok && a.bookingIdx < len(a.zoneBookings(zone.ID))-1 {
			a.bookingIdx++
		}

	case "tab":
		next := nextBranch(a.branch())
		a.zoneIdx, a.bookingIdx, a.moving = 0, 0, nil
		return a, a.run("Филиал: "+string(next), func(ctx context.Context) error {
			return a.opts.Session.SetBoardBranch(ctx, next)
		})

	case "enter", " ":
		if a.moving != nil {
			return a, a.drop()
		}
		if bk, ok := a.currentBooking(); ok {
			return a, a.run("Статус изменён", func(ctx context.Context) error {
				_, err := a.opts.Board.ToggleActive(ctx, bk.ID)
				return err
			})
		}

	case "m":
		if bk, ok := a.currentBooking(); ok {
			a.moving = &bk
			a.status = fmt.Sprintf("Перенос: %s. Выберите зону и нажмите Enter", bk.Name)
		}

	case "d":
		if bk, ok := a.currentBooking(); ok {
			return a, a.run("Бронь удалена", func(ctx context.Context) error {
				return a.opts.Board.DeleteBooking(ctx, bk.ID)
			})
		}

	case "c":
		if zone, ok := a.currentZone(); ok {
			return a, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
				defer cancel()
				dirty, err := a.opts.Board.ToggleCleanliness(ctx, zone.ID)
				if err != nil {
					return resultMsg{err: err}
				}
				if dirty {
					return resultMsg{status: zone.Name + ": не убрана"}
				}
				return resultMsg{status: zone.Name + ": убрана"}
			}
		}

	case "n":
		if _, ok := a.currentZone(); ok {
			a.editing = nil
			a.formOpen = true
			a.form.SetValue(formatDraft(a.opts.Session.Draft()))
			a.form.CursorEnd()
			return a, a.form.Focus()
		}

	case "e":
		if bk, ok := a.currentBooking(); ok {
			a.editing = &bk
			a.formOpen = true
			a.form.SetValue(formatBooking(bk))
			a.form.CursorEnd()
			return a, a.form.Focus()
		}

	case "r":
		a.status = "Обновление..."
		return a, a.run("Обновлено", a.opts.Poller.RefreshNow)

	case "p":
		a.opts.Poller.SetEnabled(!a.opts.Poller.Enabled())
		if a.opts.Poller.Enabled() {
			a.status = "Автообновление включено"
		} else {
			a.status = "Автообновление выключено"
		}

	case "x":
		if a.opts.Export != nil {
			return a, func() tea.Msg {
				path, err := a.opts.Export()
				if err != nil {
					return resultMsg{err: err}
				}
				return resultMsg{status: "Выгружено: " + path}
			}
		}
	}
	return a, nil
}

func (a *App) drop() tea.Cmd {
	bk := *a.moving
	a.moving = nil
	zone, ok := a.currentZone()
	if !ok || zone.ID == bk.TableID {
		a.status = "Перенос отменён"
		return nil
	}
	return a.run(fmt.Sprintf("%s → %s", bk.Name, zone.Name), func(ctx context.Context) error {
		return a.opts.Board.MoveBooking(ctx, bk.ID, zone.ID)
	})
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.formOpen = false
		a.editing = nil
		a.form.Blur()
		return a, nil
	case "enter":
		zone, ok := a.currentZone()
		if !ok {
			a.formOpen = false
			return a, nil
		}
		in, draft, err := parseForm(a.form.Value(), zone.ID)
		if err != nil {
			a.err = err
			return a, nil
		}
		a.formOpen = false
		a.form.Blur()
		a.form.SetValue("")
		a.err = nil
		if a.editing != nil {
			id := a.editing.ID
			a.editing = nil
			return a, a.run("Бронь изменена: "+in.Name, func(ctx context.Context) error {
				_, err := a.opts.Board.EditBooking(ctx, id, board.BookingEdit{
					Name: in.Name, Time: in.Time, Guests: in.Guests, Phone: in.Phone, Comment: in.Comment,
					HasVR: in.HasVR, HasShisha: in.HasShisha, IsHappyHours: in.IsHappyHours,
				})
				return err
			})
		}
		return a, a.run("Бронь создана: "+in.Name, func(ctx context.Context) error {
			if err := a.opts.Session.SetDraft(ctx, draft); err != nil {
				return err
			}
			if _, err := a.opts.Board.CreateBooking(ctx, in); err != nil {
				return err
			}
			return a.opts.Session.SetDraft(ctx, draft.Cleared())
		})
	}
	var cmd tea.Cmd
	a.form, cmd = a.form.Update(msg)
	return a, cmd
}

func nextBranch(b model.Branch) model.Branch {
	all := model.Branches()
	for i, known := range all {
		if known == b {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func clamp(i, n int) int {
	if i >= n {
		return n - 1
	}
	if i < 0 {
		return 0
	}
	return i
}
