package rendering

import (
	"errors"
	"sync"
	"time"

	"github.com/go-pdf/fpdf"
)

// TableExtension is the registry name of the table-layout extension.
const TableExtension = "table_layout"

const (
	pageOrientation = "P"
	pageUnit        = "mm"
	pageSize        = "Letter"
	baseFont        = "Helvetica"
)

// TableLayout draws tables onto a PDF, paginating as needed.
type TableLayout interface {
	DrawTable(pdf *fpdf.Fpdf, tr func(string) string, table Table) error
}

// Engine creates documents and holds the registry of attached extensions.
// Documents bind extensions when they are created; later registry changes do
// not reach documents that already exist.
type Engine struct {
	mu         sync.RWMutex
	extensions map[string]TableLayout
	now        func() time.Time
}

// NewEngine returns a core engine with an empty extension registry.
func NewEngine() *Engine {
	return &Engine{
		extensions: make(map[string]TableLayout),
		now:        time.Now,
	}
}

// Attach registers an extension under name, replacing any previous one.
func (e *Engine) Attach(name string, ext TableLayout) error {
	if name == "" {
		return errors.New("extension name required")
	}
	if ext == nil {
		return errors.New("extension implementation required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extensions[name] = ext
	return nil
}

// Detach removes an extension from the registry.
func (e *Engine) Detach(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.extensions, name)
}

// Has reports whether the registry currently holds name.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.extensions[name]
	return ok
}

func (e *Engine) extension(name string) TableLayout {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extensions[name]
}

// Metadata is written into the PDF info dictionary.
type Metadata struct {
	Title   string
	Author  string
	Subject string
}

// NewDocument starts a blank Letter-size document with a page-number footer.
// The first page is not added; callers decide when content begins.
func (e *Engine) NewDocument(meta Metadata) *Document {
	pdf := fpdf.New(pageOrientation, pageUnit, pageSize, "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetCreator("garantie-documents", true)
	if meta.Title != "" {
		pdf.SetTitle(meta.Title, true)
	}
	if meta.Author != "" {
		pdf.SetAuthor(meta.Author, true)
	}
	if meta.Subject != "" {
		pdf.SetSubject(meta.Subject, true)
	}

	doc := &Document{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		table: e.extension(TableExtension),
		now:   e.now,
	}
	pdf.SetFooterFunc(doc.footer)
	return doc
}
