package property

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/database"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/metrics"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/tracing"
)

const propertiesTable = "properties"

var propertyStruct = database.NewStruct(new(models.Property))

// upsertColumns are overwritten on conflict. The reference, id and created_at
// are immutable once assigned.
var upsertColumns = []string{
	"permit_number",
	"property_status",
	"property_purpose",
	"property_type",
	"property_size",
	"property_size_unit",
	"plot_area",
	"bedrooms",
	"bathrooms",
	"city",
	"locality",
	"sub_locality",
	"tower_name",
	"property_title",
	"property_title_ar",
	"property_description",
	"property_description_ar",
	"price",
	"rent_frequency",
	"furnished",
	"off_plan",
	"offplan_sale_type",
	"offplan_dld_waiver",
	"offplan_original_price",
	"offplan_amount_paid",
	"features",
	"images",
	"videos",
	"portals",
	"listing_agent",
	"listing_agent_phone",
	"listing_agent_email",
	"last_updated",
}

// PropertyRepository handles database operations for canonical properties
type PropertyRepository interface {
	Upsert(ctx context.Context, property *models.Property) (string, error)
	GetByRefNo(ctx context.Context, refNo string) (*models.Property, error)
	List(ctx context.Context, portal string) ([]models.Property, error)
	Count(ctx context.Context) (int64, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the property or, when its reference already exists,
// overwrites every mapped field. It reports whether the row was created or
// updated. Re-running an unchanged batch therefore never duplicates rows.
func (r *Repository) Upsert(ctx context.Context, property *models.Property) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "PropertyRepository.Upsert")
	defer span.End()

	ib := propertyStruct.InsertInto(propertiesTable, property)
	ub := ib.OnConflict("property_ref_no")

	assignments := make([]string, 0, len(upsertColumns)+1)
	for _, col := range upsertColumns {
		assignments = append(assignments, ub.Assign(col, database.Excluded(col)))
	}
	assignments = append(assignments, ub.Assign("updated_at", time.Now().UTC()))
	ub.Set(assignments...)

	// xmax = 0 only holds for freshly inserted rows
	ib.SQL("RETURNING (xmax = 0) AS inserted")

	query, args := ib.Build()

	var inserted bool
	err := r.db.QueryRowxContext(ctx, query, args...).Scan(&inserted)
	if err != nil {
		metrics.RecordUpsert("error")
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"property_ref_no": property.PropertyRefNo,
		}).Error("failed to upsert property")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert property")
	}

	result := models.UpsertUpdated
	if inserted {
		result = models.UpsertCreated
	}
	metrics.RecordUpsert(result)

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"property_ref_no": property.PropertyRefNo,
		"result":          result,
	}).Debugf("Upserted %s", propertiesTable)
	return result, nil
}

// GetByRefNo retrieves a property by its external reference
func (r *Repository) GetByRefNo(ctx context.Context, refNo string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "PropertyRepository.GetByRefNo")
	defer span.End()

	sb := propertyStruct.SelectFrom(propertiesTable)
	sb.Where(sb.Equal("property_ref_no", refNo))

	query, args := sb.Build()
	var property models.Property
	err := r.db.GetContext(ctx, &property, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "property '%s' does not exist", refNo)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"property_ref_no": refNo,
		}).Error("failed to get property by reference")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property by reference")
	}

	return &property, nil
}

// List retrieves properties, optionally filtered to those targeting a portal.
func (r *Repository) List(ctx context.Context, portal string) ([]models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "PropertyRepository.List")
	defer span.End()

	sb := propertyStruct.SelectFrom(propertiesTable)
	if portal != "" {
		filter, err := json.Marshal([]string{portal})
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid portal filter")
		}
		sb.Where(fmt.Sprintf("portals @> %s::jsonb", sb.Var(string(filter))))
	}
	sb.OrderBy("property_ref_no")

	query, args := sb.Build()
	var properties []models.Property
	err := r.db.SelectContext(ctx, &properties, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"portal": portal,
		}).Error("failed to list properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list properties")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"portal": portal,
		"count":  len(properties),
	}).Debugf("Listed %s", propertiesTable)
	return properties, nil
}

// Count returns the total number of persisted properties
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PropertyRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)").From(propertiesTable)

	query, args := sb.Build()
	var count int64
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count properties")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count properties")
	}

	return count, nil
}
