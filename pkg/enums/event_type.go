package enums

import "fmt"

// EventType identifies lead lifecycle events on the wire.
type EventType string

const (
	EventLeadCreated EventType = "lead_created"
)

var validEventTypes = []EventType{
	EventLeadCreated,
}

// IsValid reports whether the value matches a known event type.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
