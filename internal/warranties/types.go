package warranties

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawAmounts carries the six monetary fields exactly as the caller sent them.
// Values may be numbers, numeric strings, json.Number, nil or garbage.
type RawAmounts struct {
	BasePrice    any `json:"base_price"`
	OptionsPrice any `json:"options_price"`
	Taxes        any `json:"taxes"`
	TotalPrice   any `json:"total_price"`
	Margin       any `json:"margin"`
	Deductible   any `json:"deductible"`
}

// Amounts are the normalized monetary fields. Every value is finite.
type Amounts struct {
	BasePrice    float64 `json:"base_price"`
	OptionsPrice float64 `json:"options_price"`
	Taxes        float64 `json:"taxes"`
	TotalPrice   float64 `json:"total_price"`
	Margin       float64 `json:"margin"`
	Deductible   float64 `json:"deductible"`
}

// Raw converts normalized amounts back into the raw shape.
func (a Amounts) Raw() RawAmounts {
	return RawAmounts{
		BasePrice:    a.BasePrice,
		OptionsPrice: a.OptionsPrice,
		Taxes:        a.Taxes,
		TotalPrice:   a.TotalPrice,
		Margin:       a.Margin,
		Deductible:   a.Deductible,
	}
}

// CostBasis is what the dealer paid for the coverage: total minus margin.
func (a Amounts) CostBasis() float64 {
	return a.TotalPrice - a.Margin
}

// Option is one add-on selected on the warranty.
type Option struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// RawWarranty is the warranty record as supplied by the form layer.
type RawWarranty struct {
	ID              uuid.UUID  `json:"id"`
	OrganizationID  uuid.UUID  `json:"organization_id"`
	ContractNumber  string     `json:"contract_number"`
	CreatedBy       string     `json:"created_by"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	DurationMonths  int        `json:"duration_months"`
	SelectedOptions []Option   `json:"selected_options"`
	RawAmounts
}

// Warranty is a RawWarranty whose amounts went through NormalizeAmounts.
type Warranty struct {
	ID              uuid.UUID
	OrganizationID  uuid.UUID
	ContractNumber  string
	CreatedBy       string
	StartDate       time.Time
	EndDate         time.Time
	PurchaseDate    *time.Time
	DurationMonths  int
	SelectedOptions []Option
	Amounts         Amounts
}

// Party is the customer buying the coverage.
type Party struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

// FullName joins first and last name, skipping empty parts.
func (p Party) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// Asset is the covered trailer.
type Asset struct {
	VIN   string `json:"vin"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Type  string `json:"trailer_type"`
}

// Plan holds the coverage terms.
type Plan struct {
	NameFR        string   `json:"name_fr"`
	NameEN        string   `json:"name_en"`
	Description   string   `json:"description"`
	CoverageItems []string `json:"coverage_items"`
}

// DisplayName prefers the French name, falling back to English.
func (p Plan) DisplayName() string {
	if name := strings.TrimSpace(p.NameFR); name != "" {
		return name
	}
	return strings.TrimSpace(p.NameEN)
}

// CompanyInfo is a snapshot of the issuing dealership. Only Name is required.
type CompanyInfo struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	LicenseNumber  string `json:"license_number"`
	SignatureImage string `json:"signature_image"`
}

// Draft is the unvalidated input of the pipeline.
type Draft struct {
	Warranty RawWarranty
	Customer Party
	Trailer  Asset
	Plan     Plan
	Company  CompanyInfo
}

// Bundle is a validated Draft with normalized amounts.
type Bundle struct {
	Warranty Warranty
	Customer Party
	Trailer  Asset
	Plan     Plan
	Company  CompanyInfo
}
