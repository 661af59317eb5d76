package documents

import (
	"strings"

	"github.com/maximegiguere1one/garantiepro-sub004/internal/warranties"
	"github.com/maximegiguere1one/garantiepro-sub004/pkg/enums"
)

// Section is one named block of a custom contract template.
type Section struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body"`
}

// Template carries the contract template variants available for a warranty.
// Variants are tried in the order uploaded, custom, standard; standard always
// succeeds.
type Template struct {
	// UploadedPDF is a base64 or data URI encoded PDF.
	UploadedPDF string    `json:"uploaded_pdf,omitempty"`
	Sections    []Section `json:"sections,omitempty" validate:"omitempty,dive"`
}

// StandardTemplate is the fixed boilerplate contract.
func StandardTemplate() Template {
	return Template{}
}

// UploadedTemplate wraps a pre-rendered PDF payload.
func UploadedTemplate(payload string) Template {
	return Template{UploadedPDF: payload}
}

// CustomTemplate wraps an ordered list of sections.
func CustomTemplate(sections []Section) Template {
	return Template{Sections: sections}
}

// Kinds lists the variants this template can attempt, in priority order.
func (t Template) Kinds() []enums.TemplateKind {
	kinds := make([]enums.TemplateKind, 0, 3)
	if strings.TrimSpace(t.UploadedPDF) != "" {
		kinds = append(kinds, enums.TemplateKindUploaded)
	}
	if len(t.Sections) > 0 {
		kinds = append(kinds, enums.TemplateKindCustom)
	}
	return append(kinds, enums.TemplateKindStandard)
}

// EmployeeSignature identifies the dealership employee signing for the issuer.
type EmployeeSignature struct {
	Name  string `json:"name" validate:"required"`
	Image string `json:"image,omitempty"`
}

// ClaimLink is the claim-submission page appended to contracts. The page is
// rendered only when both fields are set.
type ClaimLink struct {
	URL string
	QR  []byte
}

func (c ClaimLink) complete() bool {
	return strings.TrimSpace(c.URL) != "" && len(c.QR) > 0
}

// Input is shared by the three renderers.
type Input struct {
	Bundle            warranties.Bundle
	EmployeeSignature *EmployeeSignature
	// SignatureImage is the customer's signature, base64 or data URI encoded.
	SignatureImage string
	Template       Template
	Claim          ClaimLink
}

// Parts recorded on artifacts.
const (
	PartConfidential    = "confidential_marker"
	PartItemTable       = "item_table"
	PartClaimPage       = "claim_page"
	PartSignaturePage   = "signature_page"
	PartIssuerSignature = "issuer_signature"
	PartIssuerBlank     = "issuer_blank_line"
	PartSignerSignature = "signer_signature"
	PartSignerBlank     = "signer_blank_line"
	partTemplatePrefix  = "template:"
)

// TemplatePart is the part name recorded for the template a contract used.
func TemplatePart(kind enums.TemplateKind) string {
	return partTemplatePrefix + kind.String()
}

// Artifact is one rendered document.
type Artifact struct {
	Type      enums.DocumentType
	Content   []byte
	PageCount int
	Parts     []string
}

// Has reports whether part was rendered.
func (a Artifact) Has(part string) bool {
	for _, p := range a.Parts {
		if p == part {
			return true
		}
	}
	return false
}

// TemplateKind reports the template variant a contract was rendered from.
func (a Artifact) TemplateKind() enums.TemplateKind {
	for _, p := range a.Parts {
		if strings.HasPrefix(p, partTemplatePrefix) {
			return enums.TemplateKind(strings.TrimPrefix(p, partTemplatePrefix))
		}
	}
	return ""
}
