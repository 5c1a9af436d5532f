package pubsub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the stable payload structure carried on the lead event topic.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// LeadCreatedPayload is the data section of a lead_created event.
type LeadCreatedPayload struct {
	LeadID uuid.UUID `json:"leadId"`
}
