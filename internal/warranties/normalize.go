package warranties

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Field names as they appear in payloads and validation messages.
const (
	FieldBasePrice    = "base_price"
	FieldOptionsPrice = "options_price"
	FieldTaxes        = "taxes"
	FieldTotalPrice   = "total_price"
	FieldMargin       = "margin"
	FieldDeductible   = "deductible"
)

type valueKind int

const (
	valueNumber valueKind = iota
	valueMissing
	valueNonFinite
	valueInvalid
)

type rawField struct {
	name  string
	value any
}

func (r RawAmounts) fields() []rawField {
	return []rawField{
		{FieldBasePrice, r.BasePrice},
		{FieldOptionsPrice, r.OptionsPrice},
		{FieldTaxes, r.Taxes},
		{FieldTotalPrice, r.TotalPrice},
		{FieldMargin, r.Margin},
		{FieldDeductible, r.Deductible},
	}
}

// NormalizeValue coerces a single raw value into a finite number. Missing,
// non-numeric and non-finite values become 0; finite numbers pass through.
func NormalizeValue(value any) float64 {
	n, kind := classify(value)
	if kind != valueNumber {
		return 0
	}
	return n
}

// NormalizeAmounts applies NormalizeValue to every monetary field.
func NormalizeAmounts(raw RawAmounts) Amounts {
	return Amounts{
		BasePrice:    NormalizeValue(raw.BasePrice),
		OptionsPrice: NormalizeValue(raw.OptionsPrice),
		Taxes:        NormalizeValue(raw.Taxes),
		TotalPrice:   NormalizeValue(raw.TotalPrice),
		Margin:       NormalizeValue(raw.Margin),
		Deductible:   NormalizeValue(raw.Deductible),
	}
}

func classify(value any) (float64, valueKind) {
	switch v := value.(type) {
	case nil:
		return 0, valueMissing
	case float64:
		return finite(v)
	case *float64:
		if v == nil {
			return 0, valueMissing
		}
		return finite(*v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), valueNumber
	case int8:
		return float64(v), valueNumber
	case int16:
		return float64(v), valueNumber
	case int32:
		return float64(v), valueNumber
	case int64:
		return float64(v), valueNumber
	case uint:
		return float64(v), valueNumber
	case uint8:
		return float64(v), valueNumber
	case uint16:
		return float64(v), valueNumber
	case uint32:
		return float64(v), valueNumber
	case uint64:
		return float64(v), valueNumber
	case json.Number:
		return parseNumeric(v.String())
	case string:
		return parseNumeric(v)
	case *string:
		if v == nil {
			return 0, valueMissing
		}
		return parseNumeric(*v)
	default:
		return 0, valueInvalid
	}
}

func finite(v float64) (float64, valueKind) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, valueNonFinite
	}
	return v, valueNumber
}

// parseNumeric accepts plain decimals plus the formatting dealers type into
// forms: surrounding spaces, a dollar sign, thousands spaces and a decimal comma.
func parseNumeric(s string) (float64, valueKind) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, valueMissing
	}
	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "$"), "$")
	cleaned = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, cleaned)
	if strings.Count(cleaned, ",") == 1 && !strings.Contains(cleaned, ".") {
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		// well-formed but out of float64 range: n is ±Inf
		return finite(n)
	case err != nil:
		return 0, valueInvalid
	}
	return finite(n)
}
