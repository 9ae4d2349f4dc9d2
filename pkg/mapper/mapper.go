// Package mapper converts raw CRM inventory records into canonical properties.
// Every rule degrades to a publishable default instead of rejecting a record;
// rejection is the validator's job.
package mapper

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

// DefaultPortals is assigned to every imported listing.
var DefaultPortals = []string{"Bayut", "dubizzle"}

const (
	defaultPropertySize  = 1000
	defaultSizeUnit      = "SQFT"
	defaultAgentName     = "Default Agent"
	defaultAgentPhone    = "+971-50-123-4567"
	defaultAgentEmail    = "agent@realestate.com"
	accessDeniedSentinel = "Access Denied"
)

// Mapper maps CRM records to canonical properties. The clock is injectable so
// timestamp fallbacks are testable.
type Mapper struct {
	logger ectologger.Logger
	now    func() time.Time
}

func New(logger ectologger.Logger) *Mapper {
	return &Mapper{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the mapper's clock.
func (m *Mapper) WithClock(now func() time.Time) *Mapper {
	m.now = now
	return m
}

// Map builds a canonical property from a raw CRM record.
func (m *Mapper) Map(record map[string]any) *models.Property {
	unitCode := getString(record, "unit_code")

	refNo := unitCode
	if refNo == "" {
		refNo = "UNIT-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:13]
	}

	purposeID := getInt(record, "bi_purpose_id", 0)
	purposeTypeID := getInt(record, "bi_purpose_type_id", 0)

	price := getFloat(record, "price", defaultPrice)
	currency := getString(record, "currency_code")
	if currency == "" {
		currency = "USD"
	}

	property := &models.Property{
		PropertyRefNo: refNo,
		PermitNumber:  unitCode,

		PropertyStatus:  mapStatus(getString(record, "availability")),
		PropertyPurpose: mapPurpose(purposeID, purposeTypeID),
		PropertyType:    mapPropertyType(getInt(record, "bi_purpose_type_id", 1)),

		PropertySize:     getFloat(record, "area", defaultPropertySize),
		PropertySizeUnit: defaultSizeUnit,
		PlotArea:         floatPtr(record, "plot_area"),
		Bedrooms:         orOne(getInt(record, "bi_bedroom_id", 1)),
		Bathrooms:        orOne(getInt(record, "bi_bathroom_id", 1)),

		City:        mapCity(getInt(record, "city_id", 110)),
		Locality:    mapLocality(getInt(record, "area_place_id", 0)),
		SubLocality: mapSubLocality(getInt(record, "sub_area_place_id", 0)),
		TowerName:   m.mapTowerName(record),

		PropertyTitle:       getStringDefault(record, "title", "Property "+unitCode),
		PropertyDescription: getStringDefault(record, "description", "Property description for "+unitCode),

		Price:         convertPrice(price, currency),
		RentFrequency: mapRentFrequency(purposeID, intPtr(record, "number_of_installments")),
		Furnished:     mapFurnished(getInt(record, "bi_furnishing_status_id", 2)),

		OffPlan: m.mapOffPlan(record),

		Features: models.StringList(SanitizeList(record["facilities_ids"])),
		Images:   models.StringList(SanitizeList(m.imagesInput(record))),
		Videos:   models.StringList(SanitizeList(m.videosInput(record))),
		Portals:  models.StringList(DefaultPortals),

		LastUpdated: m.parseTimestamp(getString(record, "updated_at")),
	}

	// Studios advertise zero bedrooms no matter what bedroom id came in.
	if property.IsStudio() {
		property.Bedrooms = 0
	}

	m.mapOffplanGroup(record, property)
	m.mapSeller(record, property)

	return property
}

// mapOffplanGroup populates the off-plan sub-fields. They exist only on
// off-plan listings, and exactly one group matches the sale type: New carries
// the DLD waiver flag, Resale carries the original price and amount paid.
func (m *Mapper) mapOffplanGroup(record map[string]any, property *models.Property) {
	if !property.OffPlan {
		return
	}

	offeringTypeID, ok := lookupInt(record, "bi_offering_type_id")
	if !ok {
		return
	}

	property.OffplanSaleType = mapOfferingType(offeringTypeID)
	downPayment, hasDownPayment := lookupFloat(record, "down_payment")

	switch offeringTypeID {
	case 1:
		waiver := 1
		if hasDownPayment && downPayment != 0 {
			waiver = 0
		}
		property.OffplanDLDWaiver = &waiver
	case 2:
		property.OffplanOriginalPrice = floatPtr(record, "price")
		if hasDownPayment {
			property.OffplanAmountPaid = &downPayment
		}
	}
}

func (m *Mapper) mapTowerName(record map[string]any) *string {
	value, ok := record["building_number"]
	if !ok || value == nil {
		return nil
	}
	name := stringifyScalar(value)
	if name == accessDeniedSentinel {
		return nil
	}
	return &name
}

// mapOffPlan treats an undelivered unit as off-plan. A missing flag means the
// unit is delivered.
func (m *Mapper) mapOffPlan(record map[string]any) bool {
	delivered, ok := lookupInt(record, "is_delivered")
	return ok && delivered == 0
}

// imagesInput prefers the media list, then a single featured image.
func (m *Mapper) imagesInput(record map[string]any) any {
	if media, ok := record["media"]; ok && media != nil {
		return media
	}
	if featured := getString(record, "featured_image"); featured != "" {
		return []any{featured}
	}
	return nil
}

func (m *Mapper) videosInput(record map[string]any) any {
	if url := getString(record, "video_embed_url"); url != "" {
		return []any{url}
	}
	return nil
}

func (m *Mapper) mapSeller(record map[string]any, property *models.Property) {
	seller, ok := record["seller"].(map[string]any)
	if !ok {
		property.ListingAgent = defaultAgentName
		property.ListingAgentPhone = defaultAgentPhone
		property.ListingAgentEmail = defaultAgentEmail
		return
	}

	property.ListingAgent = getString(seller, "name")
	property.ListingAgentPhone = getString(seller, "phone")
	property.ListingAgentEmail = getStringDefault(seller, "email", defaultAgentEmail)
}

// parseTimestamp parses the CRM's assorted timestamp formats, falling back to
// the current time when the value is missing or unparseable.
func (m *Mapper) parseTimestamp(value string) time.Time {
	if value == "" {
		return m.now()
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}

	m.logger.Warnf("Failed to parse datetime: %s", value)
	return m.now()
}

func roundHalfUp(value float64) float64 {
	return math.Floor(value + 0.5)
}

func orOne(value int) int {
	if value == 0 {
		return 1
	}
	return value
}

// getString returns the stringified value at key, or "" when absent or null.
func getString(record map[string]any, key string) string {
	value, ok := record[key]
	if !ok || value == nil {
		return ""
	}
	return stringifyScalar(value)
}

// getStringDefault substitutes the fallback only when the key is absent or
// null, matching coalescing semantics upstream.
func getStringDefault(record map[string]any, key, fallback string) string {
	value, ok := record[key]
	if !ok || value == nil {
		return fallback
	}
	return stringifyScalar(value)
}

func getInt(record map[string]any, key string, fallback int) int {
	value, ok := lookupInt(record, key)
	if !ok {
		return fallback
	}
	return value
}

func lookupInt(record map[string]any, key string) (int, bool) {
	value, ok := record[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func intPtr(record map[string]any, key string) *int {
	value, ok := lookupInt(record, key)
	if !ok {
		return nil
	}
	return &value
}

func getFloat(record map[string]any, key string, fallback float64) float64 {
	value, ok := lookupFloat(record, key)
	if !ok {
		return fallback
	}
	return value
}

func lookupFloat(record map[string]any, key string) (float64, bool) {
	value, ok := record[key]
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func floatPtr(record map[string]any, key string) *float64 {
	value, ok := lookupFloat(record, key)
	if !ok {
		return nil
	}
	return &value
}
