package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

// LeadEventPublisher emits lead lifecycle events on the lead topic.
type LeadEventPublisher struct {
	publisher *pubsub.Publisher
	logg      *logger.Logger
}

// NewLeadEventPublisher wraps a topic publisher handle.
func NewLeadEventPublisher(publisher *pubsub.Publisher, logg *logger.Logger) (*LeadEventPublisher, error) {
	if publisher == nil {
		return nil, errors.New("lead topic publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &LeadEventPublisher{
		publisher: publisher,
		logg:      logg,
	}, nil
}

// PublishLeadCreated emits a lead_created event and waits for broker acknowledgement.
func (p *LeadEventPublisher) PublishLeadCreated(ctx context.Context, leadID uuid.UUID) error {
	if leadID == uuid.Nil {
		return errors.New("lead id required")
	}

	payload, err := json.Marshal(LeadCreatedPayload{LeadID: leadID})
	if err != nil {
		return fmt.Errorf("marshal lead_created payload: %w", err)
	}
	envelope := Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal lead_created envelope: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": string(enums.EventLeadCreated),
			"lead_id":    leadID.String(),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := p.publisher.Publish(publishCtx, msg)
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish lead_created: %w", err)
	}

	p.logg.Info(p.logg.WithLeadID(ctx, leadID.String()), "lead_created event published")
	return nil
}
