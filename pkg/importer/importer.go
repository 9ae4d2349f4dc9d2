// Package importer runs the CRM property import pipeline: authenticate, fetch
// the broker inventory, extract and filter the record list, then map, validate
// and upsert each record. Failures before the record loop abort the run;
// failures inside it skip the record and the run continues.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/mapper"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/metrics"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/payload"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/tracing"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/validation"
)

// Source provides CRM access for a run.
type Source interface {
	Authenticate(ctx context.Context) (string, error)
	FetchInventory(ctx context.Context, accessToken string) (any, error)
}

// Sink persists canonical properties.
type Sink interface {
	Upsert(ctx context.Context, property *models.Property) (string, error)
}

// EventEmitter publishes import lifecycle events. Emission is best-effort and
// never fails a run.
type EventEmitter interface {
	EmitPropertyUpserted(ctx context.Context, runID string, property *models.Property, result string)
	EmitPropertyFailed(ctx context.Context, runID, refNo, reason string)
	EmitRunCompleted(ctx context.Context, report *models.ImportReport, aborted bool)
}

// Importer orchestrates import runs.
type Importer struct {
	source    Source
	sink      Sink
	mapper    *mapper.Mapper
	validator *validation.Validator
	emitter   EventEmitter
	logger    ectologger.Logger
}

// New creates an importer. The emitter is optional.
func New(source Source, sink Sink, m *mapper.Mapper, v *validation.Validator, emitter EventEmitter, logger ectologger.Logger) *Importer {
	return &Importer{
		source:    source,
		sink:      sink,
		mapper:    m,
		validator: v,
		emitter:   emitter,
		logger:    logger,
	}
}

// Run executes a full import. It returns a report when the record loop was
// reached, or an error when the run aborted before any record was processed.
func (i *Importer) Run(ctx context.Context) (*models.ImportReport, error) {
	ctx, span := tracing.StartSpan(ctx, "Importer.Run")
	defer span.End()

	report := &models.ImportReport{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Failures:  []models.RecordFailure{},
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id": report.RunID.String(),
	}).Info("Starting property import run")

	token, err := i.source.Authenticate(ctx)
	if err != nil {
		return nil, i.abort(ctx, report, WrapImportError(KindAuthentication, err))
	}

	raw, err := i.source.FetchInventory(ctx, token)
	if err != nil {
		return nil, i.abort(ctx, report, WrapImportError(KindFetch, err))
	}

	records := payload.ExtractProperties(raw)
	if len(records) == 0 {
		i.logger.WithContext(ctx).WithFields(map[string]any{
			"run_id": report.RunID.String(),
		}).Warn("No properties found in CRM response")
	}
	kept := payload.FilterRecords(records)

	report.Extracted = len(records)
	report.Filtered = len(records) - len(kept)

	for index, record := range kept {
		i.processRecord(ctx, report, index, record)
	}

	report.FinishedAt = time.Now().UTC()
	metrics.RecordImportRun("completed", report.Duration().Seconds())

	if i.emitter != nil {
		i.emitter.EmitRunCompleted(ctx, report, false)
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":    report.RunID.String(),
		"extracted": report.Extracted,
		"filtered":  report.Filtered,
		"created":   report.Created,
		"updated":   report.Updated,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"duration":  report.Duration().String(),
	}).Info("Property import run completed")

	return report, nil
}

// processRecord takes one record through map, validate and upsert. Any failure
// is recorded on the report and never stops the run.
func (i *Importer) processRecord(ctx context.Context, report *models.ImportReport, index int, record map[string]any) {
	ctx, span := tracing.StartSpan(ctx, "Importer.processRecord")
	defer span.End()

	property, result, err := i.importRecord(ctx, record)
	if err != nil {
		ie := WrapImportError(KindMapping, err)
		report.Failed++
		report.Failures = append(report.Failures, models.RecordFailure{
			Index:     index,
			Reference: ie.Reference,
			Stage:     string(ie.Kind),
			Reason:    ie.Message,
		})
		metrics.RecordImportRecord("failed")

		i.logger.WithContext(ctx).WithError(ie).WithFields(map[string]any{
			"index": index,
			"stage": string(ie.Kind),
		}).Warn("Skipping record")

		if i.emitter != nil {
			i.emitter.EmitPropertyFailed(ctx, report.RunID.String(), ie.Reference, ie.Message)
		}
		return
	}

	report.Succeeded++
	switch result {
	case models.UpsertCreated:
		report.Created++
	case models.UpsertUpdated:
		report.Updated++
	}
	metrics.RecordImportRecord(result)

	if i.emitter != nil {
		i.emitter.EmitPropertyUpserted(ctx, report.RunID.String(), property, result)
	}
}

// importRecord maps, validates and persists a single record. A panic in the
// mapping rules is converted to a mapping failure for that record only.
func (i *Importer) importRecord(ctx context.Context, record map[string]any) (property *models.Property, result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ref := ""
			if property != nil {
				ref = property.PropertyRefNo
			}
			err = NewImportErrorf(KindMapping, "panic while processing record: %v", r).AddReference(ref)
		}
	}()

	property = i.mapper.Map(record)
	refNo := property.PropertyRefNo

	if validationResult := i.validator.Validate(property); !validationResult.Valid {
		return nil, "", NewImportError(KindValidation, validationResult.Error()).AddReference(refNo)
	}

	result, upsertErr := i.sink.Upsert(ctx, property)
	if upsertErr != nil {
		return nil, "", WrapImportError(KindSink, upsertErr).AddReference(refNo)
	}

	return property, result, nil
}

// abort finalizes a run that failed before the record loop.
func (i *Importer) abort(ctx context.Context, report *models.ImportReport, ie *ImportError) error {
	report.FinishedAt = time.Now().UTC()
	metrics.RecordImportRun("aborted", report.Duration().Seconds())

	i.logger.WithContext(ctx).WithError(ie).WithFields(map[string]any{
		"run_id": report.RunID.String(),
		"stage":  string(ie.Kind),
	}).Error("Property import run aborted")

	if i.emitter != nil {
		i.emitter.EmitRunCompleted(ctx, report, true)
	}

	return fmt.Errorf("import run %s aborted: %w", report.RunID.String(), ie)
}
