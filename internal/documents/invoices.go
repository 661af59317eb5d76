package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

// RenderCustomerInvoice renders the customer-facing invoice.
func (r *Renderer) RenderCustomerInvoice(ctx context.Context, engine *rendering.Engine, in Input) (Artifact, error) {
	b := in.Bundle
	meta := rendering.Metadata{
		Title:   "Facture " + b.Warranty.ContractNumber,
		Author:  b.Company.Name,
		Subject: "Facture client",
	}
	return r.build(ctx, engine, enums.DocumentTypeCustomerInvoice, meta, func(doc *rendering.Document, art *Artifact) error {
		if err := requireIdentity(b); err != nil {
			return err
		}
		doc.SetFooter(b.Company.Name + " - facture " + b.Warranty.ContractNumber)
		doc.AddPage()
		doc.Title("FACTURE")
		invoiceHeader(doc, b)
		partiesBlock(doc, b)

		doc.Heading("Détail")
		if err := doc.Table(r.itemTable(b)); err != nil {
			return err
		}
		art.Parts = append(art.Parts, PartItemTable)

		r.coverageBlock(doc, b)
		doc.Spacer(4)
		doc.Paragraph("Merci de votre confiance. Conservez cette facture avec votre contrat de garantie.")
		return nil
	})
}

// RenderMerchantInvoice renders the dealer copy, which adds the cost basis and
// the margin taken from the record.
func (r *Renderer) RenderMerchantInvoice(ctx context.Context, engine *rendering.Engine, in Input) (Artifact, error) {
	b := in.Bundle
	meta := rendering.Metadata{
		Title:   "Facture marchand " + b.Warranty.ContractNumber,
		Author:  b.Company.Name,
		Subject: "Facture marchand - confidentiel",
	}
	return r.build(ctx, engine, enums.DocumentTypeMerchantInvoice, meta, func(doc *rendering.Document, art *Artifact) error {
		if err := requireIdentity(b); err != nil {
			return err
		}
		doc.SetFooter("CONFIDENTIEL - usage interne " + b.Company.Name)
		doc.AddPage()
		doc.Title("FACTURE MARCHAND")
		doc.Banner("CONFIDENTIEL - COPIE DU CONCESSIONNAIRE, NE PAS REMETTRE AU CLIENT", 250, 228, 200)
		art.Parts = append(art.Parts, PartConfidential)
		invoiceHeader(doc, b)
		partiesBlock(doc, b)

		doc.Heading("Détail")
		if err := doc.Table(r.itemTable(b)); err != nil {
			return err
		}
		art.Parts = append(art.Parts, PartItemTable)

		a := b.Warranty.Amounts
		doc.Heading("Rentabilité")
		if err := doc.Table(rendering.Table{
			Columns: []rendering.Column{{Header: "Poste"}, {Header: "Montant (" + r.opts.Currency + ")", Width: 45, Align: "R"}},
			Rows: [][]string{
				{"Prix total facturé", r.money(a.TotalPrice)},
				{"Coût de revient", r.money(a.CostBasis())},
			},
			Foot: [][]string{{"Marge", r.money(a.Margin)}},
		}); err != nil {
			return err
		}
		doc.Figure("MARGE :", fmt.Sprintf("%s (%s du total)", r.money(a.Margin), percentOf(a.Margin, a.TotalPrice)))
		return nil
	})
}

func invoiceHeader(doc *rendering.Document, b warranties.Bundle) {
	w := b.Warranty
	doc.Field("N° de contrat", orDash(w.ContractNumber))
	doc.Field("Date d'émission", formatDate(doc.Now()))
	if w.CreatedBy != "" {
		doc.Field("Préparé par", w.CreatedBy)
	}
}

func (r *Renderer) itemTable(b warranties.Bundle) rendering.Table {
	a := b.Warranty.Amounts
	rows := [][]string{{"Plan " + b.Plan.DisplayName(), r.money(a.BasePrice)}}
	for _, opt := range b.Warranty.SelectedOptions {
		rows = append(rows, []string{"Option : " + opt.Name, r.money(opt.Price)})
	}
	if len(b.Warranty.SelectedOptions) == 0 && a.OptionsPrice != 0 {
		rows = append(rows, []string{"Options", r.money(a.OptionsPrice)})
	}
	return rendering.Table{
		Columns: []rendering.Column{{Header: "Description"}, {Header: "Montant (" + r.opts.Currency + ")", Width: 45, Align: "R"}},
		Rows:    rows,
		Foot: [][]string{
			{"Sous-total", r.money(sum(a.BasePrice, a.OptionsPrice))},
			{r.opts.TaxLabel, r.money(a.Taxes)},
			{"Total", r.money(a.TotalPrice)},
		},
	}
}

// requireIdentity refuses to render without the fields printed as identity.
func requireIdentity(b warranties.Bundle) error {
	var missing []string
	if b.Customer.FullName() == "" {
		missing = append(missing, "customer name")
	}
	if strings.TrimSpace(b.Trailer.VIN) == "" {
		missing = append(missing, "trailer VIN")
	}
	if b.Plan.DisplayName() == "" {
		missing = append(missing, "plan name")
	}
	if len(missing) > 0 {
		return errors.New("missing " + strings.Join(missing, ", "))
	}
	return nil
}
