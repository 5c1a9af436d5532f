package enums

import "fmt"

// ActivityAction tags a lead activity entry with what happened.
type ActivityAction string

const (
	ActivityActionCreated        ActivityAction = "created"
	ActivityActionStatusChanged  ActivityAction = "status_changed"
	ActivityActionAssignedAuto   ActivityAction = "assigned_auto"
	ActivityActionAssignedManual ActivityAction = "assigned_manual"
)

var validActivityActions = []ActivityAction{
	ActivityActionCreated,
	ActivityActionStatusChanged,
	ActivityActionAssignedAuto,
	ActivityActionAssignedManual,
}

// String implements fmt.Stringer.
func (a ActivityAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActivityAction.
func (a ActivityAction) IsValid() bool {
	for _, candidate := range validActivityActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActivityAction converts raw input into an ActivityAction.
func ParseActivityAction(value string) (ActivityAction, error) {
	for _, candidate := range validActivityActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid activity action %q", value)
}
