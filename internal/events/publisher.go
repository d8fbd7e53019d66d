package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"pim-service/internal/models"
)

const (
	streamName = "PIM"

	SubjectTemplateCreated = "pim.template.created"
	SubjectTemplateUpdated = "pim.template.updated"
	SubjectTemplateDeleted = "pim.template.deleted"
)

// TemplateEvent is the wire shape for template lifecycle events.
type TemplateEvent struct {
	EventID      string    `json:"eventId"`
	EventType    string    `json:"eventType"`
	TenantID     string    `json:"tenantId"`
	TemplateID   string    `json:"templateId"`
	TemplateName string    `json:"templateName,omitempty"`
	SectionCount int       `json:"sectionCount,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher publishes template lifecycle events over NATS JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the PIM stream exists.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("pim-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"pim.>"},
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		logger.WithError(err).Warn("Failed to ensure PIM stream (may already exist)")
	}

	return &Publisher{
		conn:   conn,
		js:     js,
		logger: logger.WithField("component", "pim-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishTemplateCreated publishes a pim.template.created event
func (p *Publisher) PublishTemplateCreated(ctx context.Context, tenantID string, tpl *models.ViewTemplate) {
	p.publish(p.buildTemplateEvent(SubjectTemplateCreated, tenantID, tpl))
}

// PublishTemplateUpdated publishes a pim.template.updated event
func (p *Publisher) PublishTemplateUpdated(ctx context.Context, tenantID string, tpl *models.ViewTemplate) {
	p.publish(p.buildTemplateEvent(SubjectTemplateUpdated, tenantID, tpl))
}

// PublishTemplateDeleted publishes a pim.template.deleted event
func (p *Publisher) PublishTemplateDeleted(ctx context.Context, tenantID, templateID string) {
	p.publish(&TemplateEvent{
		EventID:    uuid.New().String(),
		EventType:  SubjectTemplateDeleted,
		TenantID:   tenantID,
		TemplateID: templateID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *Publisher) buildTemplateEvent(eventType, tenantID string, tpl *models.ViewTemplate) *TemplateEvent {
	return &TemplateEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		TenantID:     tenantID,
		TemplateID:   tpl.ID.Saved(),
		TemplateName: tpl.Name,
		SectionCount: len(tpl.Sections),
		OccurredAt:   time.Now().UTC(),
	}
}

// publish sends the event asynchronously to not block the main flow
func (p *Publisher) publish(event *TemplateEvent) {
	go func() {
		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithError(err).Error("Failed to marshal template event")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := p.js.Publish(event.EventType, data, nats.Context(ctx)); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType":  event.EventType,
				"templateId": event.TemplateID,
				"tenantId":   event.TenantID,
			}).WithError(err).Error("Failed to publish template event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"eventType":  event.EventType,
			"templateId": event.TemplateID,
			"tenantId":   event.TenantID,
		}).Info("Template event published successfully")
	}()
}
