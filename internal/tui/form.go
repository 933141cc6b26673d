package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"kanban/internal/board"
	"kanban/internal/model"
	"kanban/internal/session"
)

const formPlaceholder = "Имя, 19:30, гости[, телефон][, комментарий] [+vr +кальян +hh]"

var errFormFields = errors.New("нужны имя, время и число гостей")

// parseForm reads the one-line booking form. Positional fields are
// separated by commas; +flags may appear in any field.
func parseForm(line string, tableID int64) (board.NewBooking, session.Draft, error) {
	in := board.NewBooking{TableID: tableID}
	var fields []string
	for _, part := range strings.Split(line, ",") {
		var words []string
		for _, w := range strings.Fields(part) {
			switch strings.ToLower(w) {
			case "+vr":
				in.HasVR = true
			case "+кальян", "+shisha":
				in.HasShisha = true
			case "+hh", "+сч":
				in.IsHappyHours = true
			default:
				words = append(words, w)
			}
		}
		fields = append(fields, strings.Join(words, " "))
	}

	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	in.Name = get(0)
	in.Time = get(1)
	in.Phone = get(3)
	in.Comment = strings.Join(trailing(fields, 4), ", ")

	draft := session.Draft{
		Name: in.Name, Time: in.Time, TableID: tableID, Guests: 1,
		Phone: in.Phone, Comment: in.Comment, HasVR: in.HasVR, HasShisha: in.HasShisha,
	}

	guests, err := strconv.Atoi(get(2))
	if err == nil && guests > 0 {
		in.Guests = guests
		draft.Guests = guests
	}
	if in.Name == "" || in.Time == "" || in.Guests <= 0 {
		return in, draft, errFormFields
	}
	if _, err := model.ParseTimeOfDay(in.Time); err != nil {
		return in, draft, fmt.Errorf("время %q: ожидается ЧЧ:ММ", in.Time)
	}
	return in, draft, nil
}

func trailing(fields []string, from int) []string {
	if from >= len(fields) {
		return nil
	}
	var out []string
	for _, f := range fields[from:] {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// formatDraft renders a saved draft back into the form line.
func formatDraft(d session.Draft) string {
	if d.Name == "" && d.Time == "" {
		return ""
	}
	return formLine(d.Name, d.Time, d.Guests, d.Phone, d.Comment, d.HasVR, d.HasShisha, false)
}

// formatBooking renders an existing booking for editing.
func formatBooking(b model.Booking) string {
	return formLine(b.Name, b.Time, b.Guests, b.Phone, b.Comment, b.HasVR, b.HasShisha, b.IsHappyHours)
}

func formLine(name, at string, guests int, phone, comment string, vr, shisha, hh bool) string {
	parts := []string{name, at, strconv.Itoa(guests)}
	if phone != "" || comment != "" {
		parts = append(parts, phone)
	}
	if comment != "" {
		parts = append(parts, comment)
	}
	line := strings.Join(parts, ", ")
	if vr {
		line += " +vr"
	}
	if shisha {
		line += " +кальян"
	}
	if hh {
		line += " +hh"
	}
	return line
}
