package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"kanban/internal/happyhour"
	"kanban/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const zoneWidth = 28

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	waitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	happyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA726"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5252"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#D84315")).Padding(0, 1)

	zoneBox         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1).Width(zoneWidth)
	selectedZoneBox = zoneBox.BorderForeground(lipgloss.Color("#5B8DEF"))
	dirtyZoneBox    = zoneBox.BorderForeground(lipgloss.Color("#FF5252"))
)

func sortByTime(list []model.Booking) []model.Booking {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Time < list[j].Time })
	return list
}

// View renders the board.
func (a *App) View() string {
	now := a.opts.Clock.Now()
	branch := a.branch()

	sections := []string{a.header(branch, now)}
	if a.alert != "" {
		sections = append(sections, alertStyle.Render("🔔 "+a.alert))
	}
	sections = append(sections, a.grid(branch, now))
	if a.formOpen {
		title := "Новая бронь: "
		if a.editing != nil {
			title = "Изменить бронь: "
		}
		sections = append(sections, title+a.form.View())
	}
	sections = append(sections, a.footer())
	return strings.Join(sections, "\n")
}

func (a *App) header(branch model.Branch, now time.Time) string {
	c := a.opts.Board.Counts(branch)
	parts := []string{
		titleStyle.Render("⬡ " + string(branch)),
		fmt.Sprintf("Активные: %d", c.Active),
		fmt.Sprintf("Ожидают: %d", c.Waiting),
		fmt.Sprintf("Зоны: %d", c.Zones),
	}
	if last := a.opts.Board.LastUpdate(); !last.IsZero() {
		parts = append(parts, mutedStyle.Render("обновлено "+last.Format("15:04:05")))
	}
	if a.opts.Poller.Enabled() {
		parts = append(parts, mutedStyle.Render("[авто]"))
	}
	if _, ok := a.opts.Session.TimeOverride(); ok {
		parts = append(parts, happyStyle.Render("тестовое время "+now.Format("02.01 15:04")))
	}
	return strings.Join(parts, "  ")
}

func (a *App) grid(branch model.Branch, now time.Time) string {
	zones := a.zones()
	if len(zones) == 0 {
		return mutedStyle.Render("Нет зон")
	}
	bookings := a.opts.Board.Bookings(branch)
	a.zoneIdx = clamp(a.zoneIdx, len(zones))

	perRow := a.width / (zoneWidth + 4)
	if perRow < 1 {
		perRow = 1
	}
	var rows []string
	for start := 0; start < len(zones); start += perRow {
		end := start + perRow
		if end > len(zones) {
			end = len(zones)
		}
		boxes := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			boxes = append(boxes, a.zone(zones[i], i == a.zoneIdx, bookings, now))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) zone(z model.Zone, selected bool, bookings []model.Booking, now time.Time) string {
	title := fmt.Sprintf("%s · %d мест", z.Name, z.Capacity)
	if model.HasActiveGuests(bookings, z.ID) {
		title += " ●"
	}
	if z.NeedsCleaning() {
		title += " 🧹"
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Render(title)}

	at := sortByTime(model.BookingsAt(bookings, z.ID))
	if len(at) == 0 {
		lines = append(lines, mutedStyle.Render("свободно"))
	}
	for i, b := range at {
		cursor := "  "
		if selected && i == a.bookingIdx {
			cursor = "› "
		}
		if a.moving != nil && a.moving.ID == b.ID {
			cursor = "⇢ "
		}
		lines = append(lines, cursor+bookingStyle(b, now).Render(bookingLine(b)))
	}

	box := zoneBox
	switch {
	case selected:
		box = selectedZoneBox
	case z.NeedsCleaning():
		box = dirtyZoneBox
	}
	return box.Render(strings.Join(lines, "\n"))
}

func bookingLine(b model.Booking) string {
	line := fmt.Sprintf("%s %s (%d)", b.Time, b.Name, b.Guests)
	if b.HasVR {
		line += " VR"
	}
	if b.HasShisha {
		line += " 💨"
	}
	if b.IsHappyHours {
		line += " 🍹"
	}
	return line
}

// bookingStyle applies the happy-hour rules; blinking alternates every
// second while it is active.
func bookingStyle(b model.Booking, now time.Time) lipgloss.Style {
	style := waitingStyle
	if b.IsActive {
		style = activeStyle
	}
	if happyhour.Highlight(b, now) {
		style = happyStyle
	}
	if happyhour.Blink(b, now) && now.Second()%2 == 0 {
		style = style.Reverse(true)
	}
	return style
}

func (a *App) footer() string {
	var lines []string
	if a.err != nil {
		lines = append(lines, errorStyle.Render("Ошибка: "+a.err.Error()))
	} else if a.status != "" {
		lines = append(lines, mutedStyle.Render(a.status))
	}
	help := "←/→ зона  ↑/↓ бронь  enter статус  m перенос  n новая  e изменить  d удалить  c уборка  tab филиал  r обновить  p авто  x выгрузка  q выход"
	if a.formOpen {
		help = "enter сохранить  esc отмена"
	}
	lines = append(lines, mutedStyle.Render(help))
	return strings.Join(lines, "\n")
}
