package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Property statuses
const (
	StatusLive     = "live"
	StatusInactive = "inactive"
)

// Property purposes
const (
	PurposeSale = "Sale"
	PurposeRent = "Rent"
)

// Rent frequencies
const (
	RentFrequencyYearly  = "Yearly"
	RentFrequencyMonthly = "Monthly"
)

// Furnished states
const (
	FurnishedYes    = "Yes"
	FurnishedNo     = "No"
	FurnishedPartly = "Partly"
)

// Off-plan sale types
const (
	SaleTypeNew    = "New"
	SaleTypeResale = "Resale"
)

// PropertyTypeStudio forces bedrooms to zero wherever it appears.
const PropertyTypeStudio = "Studio"

// StringList is a flat list of trimmed strings stored as a JSONB column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// Contains reports whether the list holds the given value.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if v == value {
			return true
		}
	}
	return false
}

// Property is the canonical listing record persisted by the import pipeline
// and rendered by the portal feed. PropertyRefNo is the upsert key and is
// immutable once assigned.
type Property struct {
	ID            int64  `db:"id" json:"id" fieldopt:"omitempty"`
	PropertyRefNo string `db:"property_ref_no" json:"property_ref_no" validate:"required"`
	PermitNumber  string `db:"permit_number" json:"permit_number" validate:"required"`

	PropertyStatus  string `db:"property_status" json:"property_status" validate:"required,oneof=live inactive"`
	PropertyPurpose string `db:"property_purpose" json:"property_purpose" validate:"required,oneof=Sale Rent"`
	PropertyType    string `db:"property_type" json:"property_type" validate:"required"`

	PropertySize     float64  `db:"property_size" json:"property_size" validate:"required,gt=0"`
	PropertySizeUnit string   `db:"property_size_unit" json:"property_size_unit" validate:"required"`
	PlotArea         *float64 `db:"plot_area" json:"plot_area,omitempty" validate:"omitempty,gte=0"`
	Bedrooms         int      `db:"bedrooms" json:"bedrooms" validate:"gte=0"`
	Bathrooms        int      `db:"bathrooms" json:"bathrooms" validate:"gte=0"`

	City        string  `db:"city" json:"city" validate:"required"`
	Locality    string  `db:"locality" json:"locality" validate:"required"`
	SubLocality *string `db:"sub_locality" json:"sub_locality,omitempty"`
	TowerName   *string `db:"tower_name" json:"tower_name,omitempty"`

	PropertyTitle         string  `db:"property_title" json:"property_title" validate:"required"`
	PropertyTitleAr       *string `db:"property_title_ar" json:"property_title_ar,omitempty"`
	PropertyDescription   string  `db:"property_description" json:"property_description" validate:"required"`
	PropertyDescriptionAr *string `db:"property_description_ar" json:"property_description_ar,omitempty"`

	Price         float64 `db:"price" json:"price" validate:"required,gt=0"`
	RentFrequency *string `db:"rent_frequency" json:"rent_frequency,omitempty" validate:"omitempty,oneof=Yearly Monthly"`
	Furnished     string  `db:"furnished" json:"furnished" validate:"required,oneof=Yes No Partly"`

	OffPlan              bool     `db:"off_plan" json:"off_plan"`
	OffplanSaleType      *string  `db:"offplan_sale_type" json:"offplan_sale_type,omitempty" validate:"omitempty,oneof=New Resale"`
	OffplanDLDWaiver     *int     `db:"offplan_dld_waiver" json:"offplan_dld_waiver,omitempty" validate:"omitempty,oneof=0 1"`
	OffplanOriginalPrice *float64 `db:"offplan_original_price" json:"offplan_original_price,omitempty" validate:"omitempty,gte=0"`
	OffplanAmountPaid    *float64 `db:"offplan_amount_paid" json:"offplan_amount_paid,omitempty" validate:"omitempty,gte=0"`

	Features StringList `db:"features" json:"features"`
	Images   StringList `db:"images" json:"images"`
	Videos   StringList `db:"videos" json:"videos"`
	Portals  StringList `db:"portals" json:"portals" validate:"required,min=1"`

	ListingAgent      string `db:"listing_agent" json:"listing_agent" validate:"required"`
	ListingAgentPhone string `db:"listing_agent_phone" json:"listing_agent_phone" validate:"required"`
	ListingAgentEmail string `db:"listing_agent_email" json:"listing_agent_email" validate:"required,email"`

	LastUpdated time.Time `db:"last_updated" json:"last_updated" validate:"required"`

	CreatedAt time.Time `db:"created_at" json:"created_at" fieldopt:"omitempty"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" fieldopt:"omitempty"`
}

// TableName returns the database table name
func (Property) TableName() string {
	return "properties"
}

// IsStudio reports whether the listing is a studio unit.
func (p *Property) IsStudio() bool {
	return p.PropertyType == PropertyTypeStudio
}
