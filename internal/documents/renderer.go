package documents

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/logger"
)

// Options tunes the printed documents.
type Options struct {
	Currency string
	TaxLabel string
}

// Renderer produces the three warranty documents on a verified engine.
type Renderer struct {
	opts     Options
	logg     *logger.Logger
	uploaded uploadedTemplates
}

// NewRenderer constructs a Renderer.
func NewRenderer(opts Options, logg *logger.Logger) *Renderer {
	if opts.Currency == "" {
		opts.Currency = "CAD"
	}
	if opts.TaxLabel == "" {
		opts.TaxLabel = "Taxes (TPS/TVQ)"
	}
	return &Renderer{opts: opts, logg: logg, uploaded: pdfcpuTemplates{}}
}

// Render dispatches to the renderer for docType.
func (r *Renderer) Render(ctx context.Context, engine *rendering.Engine, docType enums.DocumentType, in Input) (Artifact, error) {
	switch docType {
	case enums.DocumentTypeCustomerInvoice:
		return r.RenderCustomerInvoice(ctx, engine, in)
	case enums.DocumentTypeMerchantInvoice:
		return r.RenderMerchantInvoice(ctx, engine, in)
	case enums.DocumentTypeContract:
		return r.RenderContract(ctx, engine, in)
	default:
		return Artifact{}, pkgerrors.Newf(pkgerrors.CodeRender, "unknown document type %q", docType)
	}
}

type buildFunc func(doc *rendering.Document, art *Artifact) error

// build runs fn against a fresh document and closes it. Errors and panics
// come back as RENDER_ERROR tagged with docType.
func (r *Renderer) build(ctx context.Context, engine *rendering.Engine, docType enums.DocumentType, meta rendering.Metadata, fn buildFunc) (art Artifact, err error) {
	art = Artifact{Type: docType}
	defer func() {
		if rec := recover(); rec != nil {
			if r.logg != nil {
				r.logg.Error(r.logg.WithField(ctx, "stack", string(debug.Stack())), "renderer panicked", fmt.Errorf("%v", rec))
			}
			art, err = Artifact{}, renderError(docType, fmt.Errorf("panic: %v", rec))
		}
	}()

	if engine == nil {
		return Artifact{}, renderError(docType, errors.New("rendering engine not ready"))
	}
	doc := engine.NewDocument(meta)
	if err := fn(doc, &art); err != nil {
		return Artifact{}, renderError(docType, err)
	}
	content, err := doc.Bytes()
	if err != nil {
		return Artifact{}, renderError(docType, err)
	}
	art.Content = content
	art.PageCount = doc.PageCount()
	return art, nil
}

func renderError(docType enums.DocumentType, err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeRender {
		return err
	}
	return pkgerrors.Wrapf(pkgerrors.CodeRender, err, "rendering %s failed: %v", docType, err).
		WithDetails(map[string]any{"document_type": docType.String()})
}

// partiesBlock prints the issuer, customer and trailer.
func partiesBlock(doc *rendering.Document, b warranties.Bundle) {
	company := b.Company
	doc.Heading("Émetteur")
	doc.Field("Concessionnaire", company.Name)
	if company.Address != "" {
		doc.Field("Adresse", company.Address)
	}
	if company.Phone != "" || company.Email != "" {
		doc.Field("Contact", joinNonEmpty(" / ", company.Phone, company.Email))
	}
	if company.LicenseNumber != "" {
		doc.Field("Permis", company.LicenseNumber)
	}

	c := b.Customer
	doc.Heading("Client")
	doc.Field("Nom", c.FullName())
	doc.Field("Courriel", c.Email)
	if c.Phone != "" {
		doc.Field("Téléphone", c.Phone)
	}
	if addr := joinNonEmpty(", ", c.Address, c.City, c.Province, c.PostalCode); addr != "" {
		doc.Field("Adresse", addr)
	}

	t := b.Trailer
	doc.Heading("Remorque")
	doc.Field("NIV", t.VIN)
	doc.Field("Marque / modèle", fmt.Sprintf("%s %s (%d)", t.Make, t.Model, t.Year))
	if t.Type != "" {
		doc.Field("Type", t.Type)
	}
}

// coverageBlock prints the plan, term and deductible.
func (r *Renderer) coverageBlock(doc *rendering.Document, b warranties.Bundle) {
	w := b.Warranty
	doc.Heading("Couverture")
	doc.Field("Plan", b.Plan.DisplayName())
	if w.DurationMonths > 0 {
		doc.Field("Durée", fmt.Sprintf("%d mois", w.DurationMonths))
	}
	doc.Field("Période", fmt.Sprintf("du %s au %s", formatDate(w.StartDate), formatDate(w.EndDate)))
	if w.PurchaseDate != nil {
		doc.Field("Date d'achat", formatDate(*w.PurchaseDate))
	}
	doc.Field("Franchise", r.money(w.Amounts.Deductible))
	if b.Plan.Description != "" {
		doc.Paragraph(b.Plan.Description)
	}
	for _, item := range b.Plan.CoverageItems {
		doc.Paragraph("- " + item)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}

func (r *Renderer) money(amount float64) string {
	return money(amount, r.opts.Currency)
}
