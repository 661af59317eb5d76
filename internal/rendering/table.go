package rendering

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
)

// Column describes one table column. A zero Width shares the space left over
// by fixed-width columns.
type Column struct {
	Header string
	Width  float64
	Align  string
}

// Table is a header row, body rows and optional emphasized footer rows.
type Table struct {
	Columns []Column
	Rows    [][]string
	Foot    [][]string
}

const (
	tableFontSize   = 9.5
	tableLineHeight = 5.0
	cellPadding     = 1.5
)

// AutoTable is the default table layout. Rows wrap inside their cells and the
// header is repeated on every page the table spans.
type AutoTable struct{}

// DrawTable implements TableLayout.
func (AutoTable) DrawTable(pdf *fpdf.Fpdf, tr func(string) string, table Table) error {
	if len(table.Columns) == 0 {
		return errors.New("table has no columns")
	}
	widths, err := columnWidths(pdf, table.Columns)
	if err != nil {
		return err
	}
	for i, row := range append(append([][]string{}, table.Rows...), table.Foot...) {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(table.Columns))
		}
	}

	t := tableWriter{pdf: pdf, tr: tr, columns: table.Columns, widths: widths}
	t.header()
	for _, row := range table.Rows {
		t.row(row, false)
	}
	for _, row := range table.Foot {
		t.row(row, true)
	}
	pdf.Ln(2)
	return pdf.Error()
}

func columnWidths(pdf *fpdf.Fpdf, columns []Column) ([]float64, error) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	available := pageW - left - right

	fixed, flexible := 0.0, 0
	for _, c := range columns {
		if c.Width > 0 {
			fixed += c.Width
		} else {
			flexible++
		}
	}
	remaining := available - fixed
	if remaining < 0 || (flexible > 0 && remaining <= 0) {
		return nil, fmt.Errorf("columns need %.1fmm, only %.1fmm available", fixed, available)
	}

	widths := make([]float64, len(columns))
	for i, c := range columns {
		if c.Width > 0 {
			widths[i] = c.Width
			continue
		}
		widths[i] = remaining / float64(flexible)
	}
	return widths, nil
}

type tableWriter struct {
	pdf     *fpdf.Fpdf
	tr      func(string) string
	columns []Column
	widths  []float64
}

func (t tableWriter) header() {
	if t.remaining() < 2*tableLineHeight+2 {
		t.pdf.AddPage()
	}
	t.pdf.SetFont(baseFont, "B", tableFontSize)
	t.pdf.SetFillColor(33, 64, 110)
	t.pdf.SetTextColor(255, 255, 255)
	for i, c := range t.columns {
		t.pdf.CellFormat(t.widths[i], tableLineHeight+2, t.tr(c.Header), "1", 0, alignOf(c.Align), true, 0, "")
	}
	t.pdf.Ln(-1)
	t.pdf.SetTextColor(0, 0, 0)
	t.pdf.SetFont(baseFont, "", tableFontSize)
}

func (t tableWriter) row(cells []string, emphasized bool) {
	style := ""
	if emphasized {
		style = "B"
	}
	t.pdf.SetFont(baseFont, style, tableFontSize)

	lines := make([][][]byte, len(cells))
	rowLines := 1
	for i, cell := range cells {
		lines[i] = t.pdf.SplitLines([]byte(t.tr(cell)), t.widths[i]-2*cellPadding)
		if len(lines[i]) > rowLines {
			rowLines = len(lines[i])
		}
	}

	// Keep a row whole when a fresh page can hold it; split it otherwise.
	if rowLines > t.linesLeft() && rowLines <= t.pageLines() {
		t.continueOnNewPage(style)
	}
	for start := 0; start < rowLines; {
		fit := t.linesLeft()
		if fit < 1 {
			t.continueOnNewPage(style)
			fit = max(t.linesLeft(), 1)
		}
		end := min(start+fit, rowLines)
		t.segment(lines, start, end, emphasized)
		start = end
	}
}

// segment draws lines [start, end) of every cell as one bordered band.
func (t tableWriter) segment(lines [][][]byte, start, end int, emphasized bool) {
	left, _, _, _ := t.pdf.GetMargins()
	x, y := left, t.pdf.GetY()
	height := float64(end-start) * tableLineHeight
	rectStyle := "D"
	if emphasized {
		t.pdf.SetFillColor(235, 239, 245)
		rectStyle = "FD"
	}
	for i, cellLines := range lines {
		t.pdf.Rect(x, y, t.widths[i], height, rectStyle)
		for j := start; j < end && j < len(cellLines); j++ {
			t.pdf.SetXY(x+cellPadding, y+float64(j-start)*tableLineHeight)
			t.pdf.CellFormat(t.widths[i]-2*cellPadding, tableLineHeight, string(cellLines[j]), "", 0, alignOf(t.columns[i].Align), false, 0, "")
		}
		x += t.widths[i]
	}
	t.pdf.SetXY(left, y+height)
}

func (t tableWriter) continueOnNewPage(style string) {
	t.pdf.AddPage()
	t.header()
	t.pdf.SetFont(baseFont, style, tableFontSize)
}

// linesLeft is how many body lines fit above the bottom margin.
func (t tableWriter) linesLeft() int {
	return fitLines(t.remaining())
}

// pageLines is how many body lines fit on a page that starts with the header.
func (t tableWriter) pageLines() int {
	_, pageH := t.pdf.GetPageSize()
	_, top, _, bottom := t.pdf.GetMargins()
	return fitLines(pageH - top - bottom - (tableLineHeight + 2))
}

// fitLines rounds down, erring short so the last line never crosses the
// page break trigger.
func fitLines(height float64) int {
	return int(math.Floor(height/tableLineHeight - 1e-9))
}

func (t tableWriter) remaining() float64 {
	_, pageH := t.pdf.GetPageSize()
	_, _, _, bottom := t.pdf.GetMargins()
	return pageH - bottom - t.pdf.GetY()
}

func alignOf(align string) string {
	switch align {
	case "R", "C":
		return align + "M"
	default:
		return "LM"
	}
}
