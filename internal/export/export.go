// Package export writes the board to an XLSX workbook, one sheet per
// branch plus a summary sheet.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"kanban/internal/model"
)

const summarySheet = "Итого"

var bookingColumns = []string{
	"Зона", "Время", "Имя", "Гости", "Телефон", "Источник",
	"Статус", "Комментарий", "VR", "Кальян", "Счастливые часы",
}

func yesNo(v bool) string {
	if v {
		return "да"
	}
	return ""
}

func status(b model.Booking) string {
	if b.IsActive {
		return "Активна"
	}
	return "Ожидает"
}

// Write renders zones and bookings as a workbook into w.
func Write(w io.Writer, zones []model.Zone, bookings []model.Booking, at time.Time) error {
	sw := newSheetWriter()
	defer sw.close()

	if err := sw.addSheet(summarySheet); err != nil {
		return err
	}
	if err := sw.writeHeader([]string{"Филиал", "Активные", "Ожидают", "Зоны", "Выгружено"}); err != nil {
		return err
	}
	for _, branch := range model.Branches() {
		c := model.CountBranch(zones, bookings, branch)
		if err := sw.writeRow([]any{string(branch), c.Active, c.Waiting, c.Zones, at.Format("02.01.2006 15:04")}); err != nil {
			return err
		}
	}

	for _, branch := range model.Branches() {
		if err := writeBranch(sw, branch, zones, bookings); err != nil {
			return fmt.Errorf("branch %s: %w", branch, err)
		}
	}
	return sw.save(w)
}

func writeBranch(sw *sheetWriter, branch model.Branch, zones []model.Zone, bookings []model.Booking) error {
	if err := sw.addSheet(string(branch)); err != nil {
		return err
	}
	if err := sw.writeHeader(bookingColumns); err != nil {
		return err
	}

	branchZones := model.ZonesOf(zones, branch)
	model.SortZones(branchZones)
	for _, z := range branchZones {
		at := model.BookingsAt(bookings, z.ID)
		sort.SliceStable(at, func(i, j int) bool { return at[i].Time < at[j].Time })
		for _, b := range at {
			row := []any{
				z.Name, b.Time, b.Name, b.Guests, b.Phone, string(b.Source),
				status(b), b.Comment, yesNo(b.HasVR), yesNo(b.HasShisha), yesNo(b.IsHappyHours),
			}
			if err := sw.writeRow(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToFile writes the workbook into dir as board-YYYYMMDD-HHMM.xlsx and
// returns its path.
func ToFile(dir string, zones []model.Zone, bookings []model.Booking, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "board-"+at.Format("20060102-1504")+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Write(f, zones, bookings, at); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
