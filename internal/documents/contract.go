package documents

import (
	"context"
	"fmt"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/rendering"
	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

var standardSections = []Section{
	{
		Title: "1. Objet du contrat",
		Body: "Le présent contrat de garantie prolongée couvre la remorque décrite ci-dessus contre les bris " +
			"mécaniques et structuraux survenant dans le cadre d'une utilisation normale, pour la période indiquée.",
	},
	{
		Title: "2. Étendue de la couverture",
		Body: "Sont couverts les pièces et la main-d'oeuvre nécessaires à la réparation des composantes énumérées au plan " +
			"choisi. Chaque réclamation acceptée est sujette à la franchise indiquée au contrat.",
	},
	{
		Title: "3. Exclusions",
		Body: "Sont exclus l'usure normale, les pneus, les dommages causés par un accident, une surcharge, une négligence, " +
			"une modification non autorisée ou un usage commercial non déclaré.",
	},
	{
		Title: "4. Obligations du client",
		Body: "Le client doit faire effectuer l'entretien recommandé par le fabricant et conserver les preuves d'entretien. " +
			"Tout bris doit être signalé dans les 30 jours suivant sa découverte.",
	},
	{
		Title: "5. Réclamations",
		Body: "Aucune réparation ne doit être entreprise sans autorisation préalable. Le client soumet sa réclamation " +
			"auprès du concessionnaire émetteur ou par le lien de réclamation fourni avec ce contrat.",
	},
	{
		Title: "6. Transfert et annulation",
		Body: "Le contrat est transférable à un acheteur subséquent de la remorque sur avis écrit. Une annulation " +
			"donne droit à un remboursement au prorata de la période non écoulée, moins les réclamations payées.",
	},
}

// RenderContract renders the warranty contract. The body comes from the
// first usable template variant; an uploaded PDF that cannot be decoded or
// validated falls back to the custom sections, then to the standard text.
func (r *Renderer) RenderContract(ctx context.Context, engine *rendering.Engine, in Input) (Artifact, error) {
	for _, kind := range in.Template.Kinds() {
		switch kind {
		case enums.TemplateKindUploaded:
			art, err := r.renderUploadedContract(ctx, engine, in)
			if err == nil {
				return art, nil
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeTemplateDecode) {
				return Artifact{}, err
			}
			r.warn(ctx, "uploaded contract template unusable, falling back", err)
		case enums.TemplateKindCustom:
			return r.renderComposedContract(ctx, engine, in, enums.TemplateKindCustom, in.Template.Sections)
		default:
			return r.renderComposedContract(ctx, engine, in, enums.TemplateKindStandard, standardSections)
		}
	}
	return r.renderComposedContract(ctx, engine, in, enums.TemplateKindStandard, standardSections)
}

func (r *Renderer) renderComposedContract(ctx context.Context, engine *rendering.Engine, in Input, kind enums.TemplateKind, sections []Section) (Artifact, error) {
	b := in.Bundle
	return r.build(ctx, engine, enums.DocumentTypeContract, contractMetadata(b), func(doc *rendering.Document, art *Artifact) error {
		if err := requireIdentity(b); err != nil {
			return err
		}
		art.Parts = append(art.Parts, TemplatePart(kind))
		doc.SetFooter(contractFooter(b))
		doc.AddPage()
		doc.Title("CONTRAT DE GARANTIE")
		doc.Field("N° de contrat", orDash(b.Warranty.ContractNumber))
		partiesBlock(doc, b)
		r.coverageBlock(doc, b)

		doc.Heading("Conditions")
		for _, s := range sections {
			doc.Heading(s.Title)
			if s.Body != "" {
				doc.Paragraph(s.Body)
			}
		}
		if err := r.totalsBlock(doc, b); err != nil {
			return err
		}
		return r.closingPages(ctx, doc, in, art)
	})
}

// renderUploadedContract validates the uploaded PDF and appends the contract
// details, claim and signature pages after its last page.
func (r *Renderer) renderUploadedContract(ctx context.Context, engine *rendering.Engine, in Input) (Artifact, error) {
	template, err := Decode(in.Template.UploadedPDF)
	if err != nil {
		return Artifact{}, pkgerrors.Wrap(pkgerrors.CodeTemplateDecode, err, "uploaded template is not valid base64")
	}
	if err := r.uploaded.Validate(template); err != nil {
		return Artifact{}, pkgerrors.Wrap(pkgerrors.CodeTemplateDecode, err, "uploaded template is not a readable PDF")
	}

	b := in.Bundle
	appendix, err := r.build(ctx, engine, enums.DocumentTypeContract, contractMetadata(b), func(doc *rendering.Document, art *Artifact) error {
		if err := requireIdentity(b); err != nil {
			return err
		}
		art.Parts = append(art.Parts, TemplatePart(enums.TemplateKindUploaded))
		doc.SetFooter(contractFooter(b))
		doc.AddPage()
		doc.Title("ANNEXE AU CONTRAT")
		doc.Field("N° de contrat", orDash(b.Warranty.ContractNumber))
		partiesBlock(doc, b)
		r.coverageBlock(doc, b)
		if err := r.totalsBlock(doc, b); err != nil {
			return err
		}
		return r.closingPages(ctx, doc, in, art)
	})
	if err != nil {
		return Artifact{}, err
	}

	merged, pages, err := r.uploaded.Merge(template, appendix.Content)
	if err != nil {
		return Artifact{}, pkgerrors.Wrap(pkgerrors.CodeTemplateDecode, err, "uploaded template could not be merged")
	}
	appendix.Content = merged
	appendix.PageCount = pages
	return appendix, nil
}

func (r *Renderer) totalsBlock(doc *rendering.Document, b warranties.Bundle) error {
	a := b.Warranty.Amounts
	doc.Heading("Prix et franchise")
	return doc.Table(rendering.Table{
		Columns: []rendering.Column{{Header: "Élément"}, {Header: "Montant (" + r.opts.Currency + ")", Width: 45, Align: "R"}},
		Rows: [][]string{
			{"Plan " + b.Plan.DisplayName(), r.money(a.BasePrice)},
			{"Options", r.money(a.OptionsPrice)},
			{r.opts.TaxLabel, r.money(a.Taxes)},
			{"Franchise par réclamation", r.money(a.Deductible)},
		},
		Foot: [][]string{{"Total du contrat", r.money(a.TotalPrice)}},
	})
}

// closingPages appends the claim page when a link and QR image are both
// available, then the signature page.
func (r *Renderer) closingPages(ctx context.Context, doc *rendering.Document, in Input, art *Artifact) error {
	if in.Claim.complete() {
		if err := claimPage(doc, in.Claim); err != nil {
			return err
		}
		art.Parts = append(art.Parts, PartClaimPage)
	}
	r.signaturePage(ctx, doc, in, art)
	return nil
}

func claimPage(doc *rendering.Document, claim ClaimLink) error {
	doc.AddPage()
	doc.Title("SOUMETTRE UNE RÉCLAMATION")
	doc.Paragraph("En cas de bris, soumettez votre réclamation en ligne à l'adresse suivante ou en balayant le code QR :")
	doc.Link(claim.URL, claim.URL)
	doc.Spacer(2)
	if err := doc.Image(claim.QR, 45); err != nil {
		return fmt.Errorf("claim qr code: %w", err)
	}

	doc.Heading("Marche à suivre")
	steps := []string{
		"Cessez d'utiliser la remorque dès la constatation du bris.",
		"Ouvrez le lien ou balayez le code QR ci-dessus.",
		"Décrivez le bris et joignez des photos ainsi que vos preuves d'entretien.",
		"Attendez l'autorisation écrite avant d'entreprendre toute réparation.",
	}
	for i, step := range steps {
		doc.Paragraph(fmt.Sprintf("%d. %s", i+1, step))
	}
	doc.Banner("IMPORTANT : toute réparation effectuée sans autorisation préalable peut être refusée.", 255, 236, 179)
	return nil
}

type signatureSlot struct {
	role  string
	name  string
	image string
	drawn string
	blank string
}

func (r *Renderer) signaturePage(ctx context.Context, doc *rendering.Document, in Input, art *Artifact) {
	b := in.Bundle
	doc.AddPage()
	doc.Title("SIGNATURES")
	doc.Paragraph("Les parties reconnaissent avoir lu le présent contrat, en comprendre les conditions et les accepter.")
	doc.Spacer(4)

	issuer := signatureSlot{
		role:  "Pour l'émetteur",
		name:  b.Company.Name,
		image: b.Company.SignatureImage,
		drawn: PartIssuerSignature,
		blank: PartIssuerBlank,
	}
	if es := in.EmployeeSignature; es != nil {
		if es.Name != "" {
			issuer.name = es.Name + ", " + b.Company.Name
		}
		if es.Image != "" {
			issuer.image = es.Image
		}
	}
	signer := signatureSlot{
		role:  "Client",
		name:  b.Customer.FullName(),
		image: in.SignatureImage,
		drawn: PartSignerSignature,
		blank: PartSignerBlank,
	}

	for _, slot := range []signatureSlot{issuer, signer} {
		art.Parts = append(art.Parts, r.signatureSlot(ctx, doc, slot))
		doc.Spacer(8)
	}
	art.Parts = append(art.Parts, PartSignaturePage)
}

// signatureSlot embeds the slot's image with a date stamp, or leaves blank
// lines for a handwritten signature. It returns the part it drew.
func (r *Renderer) signatureSlot(ctx context.Context, doc *rendering.Document, slot signatureSlot) string {
	left, _, _, _ := doc.PDF().GetMargins()
	doc.Heading(slot.role)
	doc.Field("Nom", slot.name)

	if slot.image != "" {
		img, err := Decode(slot.image)
		if err == nil {
			err = doc.Image(img, 55)
		}
		if err == nil {
			doc.Field("Signé le", doc.Now().Format("2006-01-02 15:04"))
			return slot.drawn
		}
		r.warn(ctx, "signature image unusable, leaving a blank signing line", err)
	}

	doc.Spacer(16)
	doc.SignatureLine(left, 85, "Signature")
	doc.Spacer(8)
	doc.SignatureLine(left, 50, "Date")
	return slot.blank
}

func contractMetadata(b warranties.Bundle) rendering.Metadata {
	return rendering.Metadata{
		Title:   "Contrat de garantie " + b.Warranty.ContractNumber,
		Author:  b.Company.Name,
		Subject: "Contrat de garantie " + b.Plan.DisplayName(),
	}
}

func contractFooter(b warranties.Bundle) string {
	return fmt.Sprintf("Contrat %s - %s", orDash(b.Warranty.ContractNumber), b.Company.Name)
}

func (r *Renderer) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}
