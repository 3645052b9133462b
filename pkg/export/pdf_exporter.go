package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document carries page setup and headings for a PDF export.
type Document struct {
	Title     string
	Subtitle  string
	Landscape bool
	// GeneratedAt is printed in the footer; zero means now.
	GeneratedAt time.Time
}

// PDFExporter lays a Dataset out as an A4 table. Column widths follow the
// longest cell per column and the header row repeats on every page.
type PDFExporter struct {
	fontFamily string
}

// NewPDFExporter constructs a PDF exporter using the built-in Helvetica font.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{fontFamily: "Helvetica"}
}

const (
	headerRowHeight = 8.0
	bodyRowHeight   = 7.0
	minColumnWeight = 4
)

// Render returns the PDF bytes for data.
func (e *PDFExporter) Render(data Dataset, doc Document) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if doc.Landscape {
		orientation = "L"
	}
	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(data, pageWidth-left-right)

	drawHeader := func() {
		pdf.SetFont(e.fontFamily, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], headerRowHeight, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(e.fontFamily, "", 8)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(e.fontFamily, "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s  |  Page %d/{nb}", generated.Format("2006-01-02 15:04"), pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont(e.fontFamily, "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont(e.fontFamily, "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	if doc.Title != "" || doc.Subtitle != "" {
		pdf.Ln(4)
	}

	drawHeader()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+bodyRowHeight > pageHeight-bottom {
			pdf.AddPage()
			drawHeader()
		}
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], bodyRowHeight, tr(row[h]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.CellFormat(sum(widths), bodyRowHeight, "No entries", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits total proportionally to each column's longest cell.
func columnWidths(data Dataset, total float64) []float64 {
	weights := make([]int, len(data.Headers))
	var sumWeights int
	for i, h := range data.Headers {
		w := max(len([]rune(h)), minColumnWeight)
		for _, row := range data.Rows {
			w = max(w, len([]rune(row[h])))
		}
		weights[i] = w
		sumWeights += w
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = total * float64(w) / float64(sumWeights)
	}
	return widths
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
