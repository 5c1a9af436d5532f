package enums

import "fmt"

// LeadStatus tracks where a lead sits in the sales funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusWon,
	LeadStatusLost,
}

// String implements fmt.Stringer.
func (l LeadStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeadStatus.
func (l LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// IsClosed reports whether the lead has reached a terminal status.
func (l LeadStatus) IsClosed() bool {
	return l == LeadStatusWon || l == LeadStatusLost
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}
