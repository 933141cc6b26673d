package tablecall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"kanban/internal/model"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Printable card grid on A4, in millimetres.
const (
	sheetColumns = 3
	sheetRows    = 4
	cardWidth    = 60.0
	cardHeight   = 68.0
	qrSize       = 50.0
	marginLeft   = 15.0
	marginTop    = 12.0
)

// WriteSheet renders a PDF with one QR card per zone of the branch.
// Core PDF fonts have no Cyrillic glyphs, so cards carry the zone number.
func (s *Server) WriteSheet(ctx context.Context, w io.Writer, branch model.Branch) error {
	all, err := s.store.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("list zones: %w", err)
	}
	zones := model.ZonesOf(all, branch)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}

	for i, z := range zones {
		slot := i % (sheetColumns * sheetRows)
		if slot == 0 {
			pdf.AddPage()
		}
		x := marginLeft + float64(slot%sheetColumns)*cardWidth
		y := marginTop + float64(slot/sheetColumns)*cardHeight

		png, err := qrcode.Encode(s.TableURL(branch, z.ID), qrcode.Medium, 256)
		if err != nil {
			return fmt.Errorf("encode qr for zone %d: %w", z.ID, err)
		}
		name := "qr-" + strconv.FormatInt(z.ID, 10)
		pdf.RegisterImageOptionsReader(name, imageOpts, bytes.NewReader(png))
		pdf.ImageOptions(name, x+(cardWidth-qrSize)/2, y, qrSize, qrSize, false, imageOpts, 0, "")

		pdf.SetXY(x, y+qrSize+2)
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(cardWidth, 7, cardLabel(z), "", 2, "C", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(cardWidth, 5, "Scan to call staff", "", 0, "C", false, 0, "")
	}
	if len(zones) == 0 {
		pdf.AddPage()
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 10, "No zones")
	}
	return pdf.Output(w)
}

func cardLabel(z model.Zone) string {
	if n := model.ZoneNumber(z.Name); n > 0 {
		return fmt.Sprintf("Zone %d", n)
	}
	return fmt.Sprintf("Table %d", z.ID)
}
