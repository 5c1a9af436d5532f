package enums

import "fmt"

// ShareMode declares which column drives a rule member's share of traffic.
// Percentage and weight both exist on the row; only the tagged one is read.
type ShareMode string

const (
	ShareModePercentage ShareMode = "percentage"
	ShareModeWeight     ShareMode = "weight"
)

var validShareModes = []ShareMode{
	ShareModePercentage,
	ShareModeWeight,
}

// String implements fmt.Stringer.
func (s ShareMode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShareMode.
func (s ShareMode) IsValid() bool {
	for _, candidate := range validShareModes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShareMode converts raw input into a ShareMode.
func ParseShareMode(value string) (ShareMode, error) {
	for _, candidate := range validShareModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid share mode %q", value)
}
