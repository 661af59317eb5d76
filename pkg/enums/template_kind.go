package enums

import "fmt"

// TemplateKind selects how a contract body is produced.
type TemplateKind string

const (
	TemplateKindStandard TemplateKind = "standard"
	TemplateKindUploaded TemplateKind = "uploaded"
	TemplateKindCustom   TemplateKind = "custom"
)

var validTemplateKinds = []TemplateKind{
	TemplateKindStandard,
	TemplateKindUploaded,
	TemplateKindCustom,
}

func (t TemplateKind) String() string {
	return string(t)
}

func (t TemplateKind) IsValid() bool {
	for _, candidate := range validTemplateKinds {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTemplateKind converts raw input into a TemplateKind.
func ParseTemplateKind(value string) (TemplateKind, error) {
	for _, candidate := range validTemplateKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid template kind %q", value)
}
