// Package validation enforces the canonical property constraint set. The same
// rules guard both CRM-imported records and records submitted through the API,
// so a record that passes here is publishable regardless of where it came from.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mohamedelfert/bayut-dubizzle-xml/pkg/models"
)

// Violation is a single failed check on a record.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result collects every violation found on a record instead of stopping at
// the first one.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

func (r Result) Error() string {
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return strings.Join(parts, "; ")
}

// Validator validates canonical properties.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report violations under the wire field names, not the Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// Validate runs the full constraint set against a property.
func (v *Validator) Validate(property *models.Property) Result {
	result := Result{Valid: true, Violations: []Violation{}}

	if err := v.validate.Struct(property); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				result.Violations = append(result.Violations, Violation{
					Field:   fe.Field(),
					Rule:    fe.Tag(),
					Message: describeTag(fe),
				})
			}
		} else {
			result.Violations = append(result.Violations, Violation{
				Field:   "record",
				Rule:    "struct",
				Message: err.Error(),
			})
		}
	}

	result.Violations = append(result.Violations, checkRentFrequency(property)...)
	result.Violations = append(result.Violations, checkStudioBedrooms(property)...)
	result.Violations = append(result.Violations, checkOffplanGroup(property)...)

	result.Valid = len(result.Violations) == 0
	return result
}

// checkRentFrequency forbids a billing cadence on sale listings.
func checkRentFrequency(p *models.Property) []Violation {
	if p.RentFrequency != nil && p.PropertyPurpose != models.PurposeRent {
		return []Violation{{
			Field:   "rent_frequency",
			Rule:    "rent_only",
			Message: "rent frequency is only valid for rentals",
		}}
	}
	return nil
}

// checkStudioBedrooms pins studios to zero bedrooms.
func checkStudioBedrooms(p *models.Property) []Violation {
	if p.IsStudio() && p.Bedrooms != 0 {
		return []Violation{{
			Field:   "bedrooms",
			Rule:    "studio_bedrooms",
			Message: "studio listings must have zero bedrooms",
		}}
	}
	return nil
}

// checkOffplanGroup enforces the off-plan sub-field contract: sub-fields exist
// only on off-plan listings, and the populated group must match the sale type
// (New carries the waiver flag, Resale the original price and amount paid).
func checkOffplanGroup(p *models.Property) []Violation {
	var violations []Violation

	if !p.OffPlan {
		if p.OffplanSaleType != nil || p.OffplanDLDWaiver != nil ||
			p.OffplanOriginalPrice != nil || p.OffplanAmountPaid != nil {
			violations = append(violations, Violation{
				Field:   "off_plan",
				Rule:    "offplan_fields",
				Message: "off-plan fields are only valid on off-plan listings",
			})
		}
		return violations
	}

	if p.OffplanSaleType == nil {
		if p.OffplanDLDWaiver != nil || p.OffplanOriginalPrice != nil || p.OffplanAmountPaid != nil {
			violations = append(violations, Violation{
				Field:   "offplan_sale_type",
				Rule:    "offplan_group",
				Message: "off-plan sub-fields require a sale type",
			})
		}
		return violations
	}

	switch *p.OffplanSaleType {
	case models.SaleTypeNew:
		if p.OffplanDLDWaiver == nil {
			violations = append(violations, Violation{
				Field:   "offplan_dld_waiver",
				Rule:    "offplan_group",
				Message: "new off-plan listings require a DLD waiver flag",
			})
		}
		if p.OffplanOriginalPrice != nil || p.OffplanAmountPaid != nil {
			violations = append(violations, Violation{
				Field:   "offplan_sale_type",
				Rule:    "offplan_group",
				Message: "new off-plan listings must not carry resale fields",
			})
		}
	case models.SaleTypeResale:
		if p.OffplanDLDWaiver != nil {
			violations = append(violations, Violation{
				Field:   "offplan_dld_waiver",
				Rule:    "offplan_group",
				Message: "resale off-plan listings must not carry a DLD waiver flag",
			})
		}
	}

	return violations
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "email":
		return "invalid email format"
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}
