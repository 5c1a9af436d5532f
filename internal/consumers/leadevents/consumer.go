package leadevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leadflow-crm/leadflow-backend/internal/assignment"
	"github.com/leadflow-crm/leadflow-backend/pkg/db/models"
	"github.com/leadflow-crm/leadflow-backend/pkg/enums"
	pkgerrors "github.com/leadflow-crm/leadflow-backend/pkg/errors"
	"github.com/leadflow-crm/leadflow-backend/pkg/logger"
	leadpubsub "github.com/leadflow-crm/leadflow-backend/pkg/pubsub"
)

const leadAssignmentConsumer = "lead-assignment"

type leadFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
}

type leadAssigner interface {
	Assign(ctx context.Context, lead *models.Lead) (*assignment.Result, error)
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer watches lead_created events and routes new leads through the assignment engine.
type Consumer struct {
	leads        leadFinder
	assigner     leadAssigner
	idempotency  idempotencyGuard
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds a lead assignment consumer.
func NewConsumer(leads leadFinder, assigner leadAssigner, guard idempotencyGuard, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if leads == nil {
		return nil, fmt.Errorf("leads repository required")
	}
	if assigner == nil {
		return nil, fmt.Errorf("assigner required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("lead subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		leads:        leads,
		assigner:     assigner,
		idempotency:  guard,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventLeadCreated) {
		c.logg.Info(logCtx, "skipping non-lead event")
		return processResult{ack: true}
	}

	var envelope leadpubsub.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, leadAssignmentConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload leadpubsub.LeadCreatedPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, leadAssignmentConsumer, eventID)
		return processResult{nack: true}
	}
	if payload.LeadID == uuid.Nil {
		c.logg.Error(logCtx, "lead id missing from payload", nil)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithLeadID(logCtx, payload.LeadID.String())

	if err := c.assignLead(ctx, payload.LeadID, logCtx); err != nil {
		c.logg.Error(logCtx, "lead assignment failed", err)
		_ = c.idempotency.Delete(ctx, leadAssignmentConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) assignLead(ctx context.Context, leadID uuid.UUID, logCtx context.Context) error {
	lead, err := c.leads.FindByID(ctx, leadID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.logg.Info(logCtx, "lead no longer exists")
		return nil
	}
	if err != nil {
		return err
	}
	if lead.AssignedAgentID != nil {
		c.logg.Info(logCtx, "lead already assigned")
		return nil
	}

	result, err := c.assigner.Assign(ctx, lead)
	if err != nil {
		// A concurrent writer claimed the lead between the read and the attempt.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			c.logg.Info(logCtx, "lead claimed by concurrent writer")
			return nil
		}
		return err
	}
	if result == nil {
		// No rule matched. The periodic sweep retries unassigned leads.
		c.logg.Info(logCtx, "no matching assignment rule")
		return nil
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"agent_id": result.AgentID.String(),
		"rule_id":  result.RuleID.String(),
		"strategy": result.Strategy,
	}), "lead assigned")
	return nil
}
