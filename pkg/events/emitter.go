// Package events publishes import lifecycle events. Event delivery is
// best-effort: a broker outage never fails an import run.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/kafka"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/tracing"
)

// Event types
const (
	EventPropertyCreated = "property.created"
	EventPropertyUpdated = "property.updated"
	EventPropertyFailed  = "property.failed"
	EventImportCompleted = "import.completed"
	EventImportAborted   = "import.aborted"
)

// Emitter handles import event emission
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitPropertyUpserted emits property.created or property.updated based on
// the upsert result.
func (e *Emitter) EmitPropertyUpserted(ctx context.Context, runID string, property *models.Property, result string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPropertyUpserted")
	defer span.End()

	eventType := EventPropertyUpdated
	if result == models.UpsertCreated {
		eventType = EventPropertyCreated
	}

	data, err := json.Marshal(property)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to encode property event payload")
		return
	}

	event := &kafka.PropertyEvent{
		EventType:     eventType,
		RunID:         runID,
		PropertyRefNo: property.PropertyRefNo,
		Data:          data,
	}

	if err := e.producer.PublishPropertyEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}

// EmitPropertyFailed emits property.failed for a skipped record.
func (e *Emitter) EmitPropertyFailed(ctx context.Context, runID, refNo, reason string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPropertyFailed")
	defer span.End()

	event := &kafka.PropertyEvent{
		EventType:     EventPropertyFailed,
		RunID:         runID,
		PropertyRefNo: refNo,
		Reason:        reason,
	}

	if err := e.producer.PublishPropertyEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit property.failed event")
	}
}

// EmitRunCompleted emits the run summary.
func (e *Emitter) EmitRunCompleted(ctx context.Context, report *models.ImportReport, aborted bool) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunCompleted")
	defer span.End()

	eventType := EventImportCompleted
	if aborted {
		eventType = EventImportAborted
	}

	data, err := json.Marshal(report)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to encode run event payload")
		return
	}

	event := &kafka.RunEvent{
		EventType: eventType,
		RunID:     report.RunID.String(),
		Report:    data,
	}

	if err := e.producer.PublishRunEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
	}
}
