package gatepass

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PassRenderer draws the printable pass shown to security staff at the gate.
type PassRenderer struct {
	title string
}

func NewPassRenderer(title string) *PassRenderer {
	return &PassRenderer{title: title}
}

func (r *PassRenderer) Render(g *GatePassRequest) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("%s #%d", r.title, g.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Pass No. %06d", g.ID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Student", g.StudentName},
		{"Roll number", g.RollNumber},
		{"Department", g.Department},
		{"Year / Section", strconv.Itoa(g.Year) + " / " + g.ClassSection},
		{"Mobile", g.MobileNumber},
		{"Purpose", g.Purpose},
		{"Status", string(g.Status)},
		{"Requested", g.CreatedAt.Format(time.RFC1123)},
		{"Approved", g.UpdatedAt.Format(time.RFC1123)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 7, row[1], "1", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 5, "Present this pass to security staff when leaving campus. Valid only while its status is APPROVED.", "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pass %d: %w", g.ID, err)
	}
	return buf.Bytes(), nil
}
