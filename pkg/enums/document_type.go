package enums

import "fmt"

// DocumentType identifies one artifact of a warranty document set.
type DocumentType string

const (
	DocumentTypeCustomerInvoice DocumentType = "customer_invoice"
	DocumentTypeMerchantInvoice DocumentType = "merchant_invoice"
	DocumentTypeContract        DocumentType = "contract"
)

// DocumentTypes lists the document types in generation order.
var DocumentTypes = []DocumentType{
	DocumentTypeCustomerInvoice,
	DocumentTypeMerchantInvoice,
	DocumentTypeContract,
}

// String returns the literal string for the document type.
func (d DocumentType) String() string {
	return string(d)
}

// IsValid reports whether the document type is known.
func (d DocumentType) IsValid() bool {
	for _, candidate := range DocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocumentType converts raw input into a DocumentType.
func ParseDocumentType(value string) (DocumentType, error) {
	for _, candidate := range DocumentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
