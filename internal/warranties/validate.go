package warranties

import (
	"fmt"
	"math"
	"strings"

	pkgerrors "github.com/maximegiguere1one/garantiepro-sub004/pkg/errors"
)

// DefaultMaxPlausibleAmount is the ceiling above which an amount is flagged.
const DefaultMaxPlausibleAmount = 1_000_000

const totalTolerance = 0.01

// Limits tunes the plausibility checks of ValidateAmounts.
type Limits struct {
	MaxPlausible float64
}

func (l Limits) ceiling() float64 {
	if l.MaxPlausible <= 0 {
		return DefaultMaxPlausibleAmount
	}
	return l.MaxPlausible
}

// Issue is one finding on a single field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// AmountsValidation is the outcome of ValidateAmounts. Valid is false only
// when Errors is non-empty; warnings never block generation.
type AmountsValidation struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// ValidateAmounts inspects the raw monetary fields without mutating them.
func ValidateAmounts(raw RawAmounts, limits Limits) AmountsValidation {
	result := AmountsValidation{}
	ceiling := limits.ceiling()

	for _, f := range raw.fields() {
		n, kind := classify(f.value)
		switch kind {
		case valueInvalid:
			result.Errors = append(result.Errors, Issue{f.name, fmt.Sprintf("value %v is not a number", describe(f.value))})
		case valueNonFinite:
			result.Errors = append(result.Errors, Issue{f.name, "value is not a finite number"})
		case valueMissing:
			if f.name == FieldBasePrice || f.name == FieldTotalPrice {
				result.Warnings = append(result.Warnings, Issue{f.name, "missing, defaulted to 0"})
			}
		case valueNumber:
			if n < 0 {
				result.Warnings = append(result.Warnings, Issue{f.name, fmt.Sprintf("negative amount %.2f", n)})
			}
			if n > ceiling {
				result.Warnings = append(result.Warnings, Issue{f.name, fmt.Sprintf("amount %.2f exceeds %.2f", n, ceiling)})
			}
		}
	}

	if len(result.Errors) > 0 {
		return result
	}

	a := NormalizeAmounts(raw)
	if expected := a.BasePrice + a.OptionsPrice + a.Taxes; math.Abs(expected-a.TotalPrice) > totalTolerance {
		result.Warnings = append(result.Warnings, Issue{
			FieldTotalPrice,
			fmt.Sprintf("total %.2f differs from base + options + taxes %.2f", a.TotalPrice, expected),
		})
	}
	if a.Margin > a.TotalPrice && a.TotalPrice > 0 {
		result.Warnings = append(result.Warnings, Issue{FieldMargin, "margin exceeds total price"})
	}

	result.Valid = true
	return result
}

// Validate checks the draft's amounts and required identity fields. On success
// it returns the normalized bundle and any warnings; on failure it returns a
// VALIDATION_ERROR whose details list every hard error.
func (d Draft) Validate(limits Limits) (Bundle, []Issue, error) {
	amounts := ValidateAmounts(d.Warranty.RawAmounts, limits)
	issues := append([]Issue{}, amounts.Errors...)
	issues = append(issues, d.identityIssues()...)

	if len(issues) > 0 {
		messages := make([]string, 0, len(issues))
		for _, issue := range issues {
			messages = append(messages, issue.String())
		}
		err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed: "+strings.Join(messages, "; ")).
			WithDetails(map[string]any{"errors": issues, "warnings": amounts.Warnings})
		return Bundle{}, amounts.Warnings, err
	}

	return d.Normalize(), amounts.Warnings, nil
}

// Normalize produces the bundle handed to renderers. It does not validate.
func (d Draft) Normalize() Bundle {
	w := d.Warranty
	return Bundle{
		Warranty: Warranty{
			ID:              w.ID,
			OrganizationID:  w.OrganizationID,
			ContractNumber:  w.ContractNumber,
			CreatedBy:       w.CreatedBy,
			StartDate:       w.StartDate,
			EndDate:         w.EndDate,
			PurchaseDate:    w.PurchaseDate,
			DurationMonths:  w.DurationMonths,
			SelectedOptions: w.SelectedOptions,
			Amounts:         NormalizeAmounts(w.RawAmounts),
		},
		Customer: d.Customer,
		Trailer:  d.Trailer,
		Plan:     d.Plan,
		Company:  d.Company,
	}
}

func (d Draft) identityIssues() []Issue {
	var issues []Issue
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{field, "is required"})
		}
	}

	require("customer.first_name", d.Customer.FirstName)
	require("customer.last_name", d.Customer.LastName)
	require("customer.email", d.Customer.Email)
	if email := strings.TrimSpace(d.Customer.Email); email != "" && !strings.Contains(email, "@") {
		issues = append(issues, Issue{"customer.email", "is not an email address"})
	}

	require("trailer.vin", d.Trailer.VIN)
	require("trailer.make", d.Trailer.Make)
	require("trailer.model", d.Trailer.Model)
	if d.Trailer.Year <= 0 {
		issues = append(issues, Issue{"trailer.year", "must be positive"})
	}

	if d.Plan.DisplayName() == "" {
		issues = append(issues, Issue{"plan.name", "a French or English name is required"})
	}
	require("company.name", d.Company.Name)
	return issues
}

func describe(value any) string {
	if s, ok := value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", value)
}
