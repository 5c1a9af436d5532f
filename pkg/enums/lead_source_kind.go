package enums

import "fmt"

// LeadSourceKind classifies where a lead source's traffic originates.
type LeadSourceKind string

const (
	LeadSourceKindWebhook LeadSourceKind = "webhook"
	LeadSourceKindMeta    LeadSourceKind = "meta"
	LeadSourceKindCall    LeadSourceKind = "call"
	LeadSourceKindManual  LeadSourceKind = "manual"
)

var validLeadSourceKinds = []LeadSourceKind{
	LeadSourceKindWebhook,
	LeadSourceKindMeta,
	LeadSourceKindCall,
	LeadSourceKindManual,
}

// String implements fmt.Stringer.
func (l LeadSourceKind) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeadSourceKind.
func (l LeadSourceKind) IsValid() bool {
	for _, candidate := range validLeadSourceKinds {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeadSourceKind converts raw input into a LeadSourceKind.
func ParseLeadSourceKind(value string) (LeadSourceKind, error) {
	for _, candidate := range validLeadSourceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead source kind %q", value)
}
