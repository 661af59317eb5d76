package rendering

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/go-pdf/fpdf"
)

// ErrTableUnavailable is returned when a document was created before the
// table-layout extension was attached to its engine.
var ErrTableUnavailable = errors.New("table layout not available on document")

// Document is one PDF under construction. Text passed to its helpers is UTF-8
// and is translated to the core font code page on the way in.
type Document struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	table TableLayout
	now   func() time.Time

	footerText string
	images     int
}

// PDF exposes the underlying fpdf instance for layouts not covered here.
func (d *Document) PDF() *fpdf.Fpdf {
	return d.pdf
}

// CanDrawTables reports whether the table extension is bound to this instance.
func (d *Document) CanDrawTables() bool {
	return d.table != nil
}

// SetFooter sets the text printed left of the page number on every page.
func (d *Document) SetFooter(text string) {
	d.footerText = text
}

func (d *Document) footer() {
	d.pdf.SetY(-14)
	d.pdf.SetFont(baseFont, "I", 7.5)
	d.pdf.SetTextColor(110, 110, 110)
	pageW, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	width := pageW - left - right
	d.pdf.CellFormat(width*0.75, 5, d.tr(d.footerText), "", 0, "LM", false, 0, "")
	d.pdf.CellFormat(width*0.25, 5, fmt.Sprintf("Page %d/{nb}", d.pdf.PageNo()), "", 0, "RM", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

// AddPage starts a new page.
func (d *Document) AddPage() {
	d.pdf.AddPage()
	d.pdf.SetFont(baseFont, "", 10)
}

// Title writes a large centered title.
func (d *Document) Title(text string) {
	d.pdf.SetFont(baseFont, "B", 16)
	d.pdf.CellFormat(0, 9, d.tr(text), "", 1, "CM", false, 0, "")
	d.pdf.Ln(2)
	d.pdf.SetFont(baseFont, "", 10)
}

// Heading writes a section heading with a rule beneath it.
func (d *Document) Heading(text string) {
	d.EnsureSpace(16)
	d.pdf.SetFont(baseFont, "B", 11.5)
	d.pdf.CellFormat(0, 7, d.tr(text), "B", 1, "LM", false, 0, "")
	d.pdf.Ln(1.5)
	d.pdf.SetFont(baseFont, "", 10)
}

// Paragraph writes wrapped body text.
func (d *Document) Paragraph(text string) {
	d.pdf.SetFont(baseFont, "", 10)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "J", false)
	d.pdf.Ln(1)
}

// Field writes a bold label followed by its value on the same line.
func (d *Document) Field(label, value string) {
	d.pdf.SetFont(baseFont, "B", 10)
	d.pdf.CellFormat(48, 5.5, d.tr(label), "", 0, "LM", false, 0, "")
	d.pdf.SetFont(baseFont, "", 10)
	d.pdf.MultiCell(0, 5.5, d.tr(value), "", "L", false)
}

// Banner writes a filled, bordered block of bold text.
func (d *Document) Banner(text string, r, g, b int) {
	d.EnsureSpace(14)
	d.pdf.SetFont(baseFont, "B", 10.5)
	d.pdf.SetFillColor(r, g, b)
	d.pdf.MultiCell(0, 6, d.tr(text), "1", "C", true)
	d.pdf.Ln(2)
	d.pdf.SetFont(baseFont, "", 10)
}

// Figure writes a right-aligned emphasized amount line.
func (d *Document) Figure(label, value string) {
	d.pdf.SetFont(baseFont, "B", 13)
	d.pdf.CellFormat(0, 8, d.tr(label+"  "+value), "", 1, "RM", false, 0, "")
	d.pdf.SetFont(baseFont, "", 10)
}

// Spacer advances the cursor by h millimetres.
func (d *Document) Spacer(h float64) {
	d.pdf.Ln(h)
}

// EnsureSpace starts a new page when less than h millimetres remain.
func (d *Document) EnsureSpace(h float64) {
	_, pageH := d.pdf.GetPageSize()
	_, _, _, bottom := d.pdf.GetMargins()
	if d.pdf.GetY()+h > pageH-bottom {
		d.AddPage()
	}
}

// Table draws t with the extension bound when the document was created.
func (d *Document) Table(t Table) error {
	if d.table == nil {
		return ErrTableUnavailable
	}
	return d.table.DrawTable(d.pdf, d.tr, t)
}

// Link writes label as a clickable link to target.
func (d *Document) Link(label, target string) {
	d.pdf.SetFont(baseFont, "U", 10)
	d.pdf.SetTextColor(20, 70, 160)
	d.pdf.WriteLinkString(5.5, d.tr(label), target)
	d.pdf.Ln(6)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont(baseFont, "", 10)
}

// Image embeds a PNG, JPEG or GIF of the given width at the cursor and moves
// the cursor below it. Height follows the image aspect ratio.
func (d *Document) Image(data []byte, width float64) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	imageType, err := fpdfImageType(format)
	if err != nil {
		return err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return errors.New("image has no pixels")
	}
	height := width * float64(cfg.Height) / float64(cfg.Width)
	d.EnsureSpace(height + 2)

	d.images++
	name := fmt.Sprintf("img-%d", d.images)
	opts := fpdf.ImageOptions{ImageType: imageType}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("register image: %w", err)
	}
	x, y := d.pdf.GetXY()
	d.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	d.pdf.SetY(y + height + 2)
	return d.pdf.Error()
}

func fpdfImageType(format string) (string, error) {
	switch format {
	case "png":
		return "PNG", nil
	case "jpeg":
		return "JPG", nil
	case "gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}

// SignatureLine draws a signing rule of the given width with a caption under it.
func (d *Document) SignatureLine(x, width float64, caption string) {
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(0, 0, 0)
	d.pdf.Line(x, y, x+width, y)
	d.pdf.SetXY(x, y+1)
	d.pdf.SetFont(baseFont, "", 8.5)
	d.pdf.CellFormat(width, 4.5, d.tr(caption), "", 2, "LM", false, 0, "")
	d.pdf.SetFont(baseFont, "", 10)
}

// Now returns the engine clock.
func (d *Document) Now() time.Time {
	return d.now()
}

// PageCount is the number of pages added so far.
func (d *Document) PageCount() int {
	return d.pdf.PageNo()
}

// Err returns the first error recorded by the PDF writer.
func (d *Document) Err() error {
	return d.pdf.Error()
}

// Bytes closes the document and returns its encoded form.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
