package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 190.0 // A4 portrait minus 10mm margins
	pdfRowHeight = 7.0
)

// PDFExporter renders a dataset as a printable A4 table: header row repeated
// on every page, zebra rows, and a footer with the row count and page number.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws title (optional) and the table. Core fonts are cp1252, so
// accented names are translated before drawing.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	records := data.Records()
	widths := columnWidths(records, pdfPageWidth)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(220, 220, 220)
		for i, h := range records[0] {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total: %d  |  Página %d", len(records)-1, pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	drawHeader()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for n, record := range records[1:] {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			drawHeader()
		}
		fill := n%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for i, value := range record {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(value), "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares total proportionally to the longest value of each
// column, with a floor so short columns such as roll numbers stay legible.
func columnWidths(records [][]string, total float64) []float64 {
	cols := len(records[0])
	longest := make([]int, cols)
	sum := 0
	for c := 0; c < cols; c++ {
		for _, r := range records {
			if n := utf8.RuneCountInString(r[c]); n > longest[c] {
				longest[c] = n
			}
		}
		if longest[c] < 6 {
			longest[c] = 6
		}
		sum += longest[c]
	}
	widths := make([]float64, cols)
	for c := range widths {
		widths[c] = total * float64(longest[c]) / float64(sum)
	}
	return widths
}
