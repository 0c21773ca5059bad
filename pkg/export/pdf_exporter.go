package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a timetable into a day-sectioned PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

var pdfColumns = []struct {
	label string
	width float64
}{
	{"start", 25},
	{"end", 25},
	{"subject", 72},
	{"kind", 22},
	{"teachers", 65},
	{"classroom", 43},
	{"group", 25},
}

// Render creates a landscape PDF with one banner row per day and the
// day's occupancies beneath it.
func (e *PDFExporter) Render(t Timetable) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if t.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(t.Title), "", 1, "C", false, 0, "")
	}
	if t.Period != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, t.Period, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	writeHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.label, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	writeHeader()

	var currentDay string
	total := 0.0
	for _, col := range pdfColumns {
		total += col.width
	}
	for _, row := range t.Rows {
		if row.Date != currentDay {
			currentDay = row.Date
			pdf.SetFont("Arial", "B", 9)
			pdf.SetFillColor(230, 230, 230)
			pdf.CellFormat(total, 6, currentDay, "1", 1, "L", true, 0, "")
		}
		pdf.SetFont("Arial", "", 9)
		values := []string{row.Start, row.End, row.Subject, row.Kind, row.Teachers, row.Classroom, row.Group}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 6, values[i], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
