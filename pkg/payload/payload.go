// Package payload locates the property record list inside the CRM response.
// The broker inventory endpoint has shipped several envelope shapes over time,
// so extraction probes a fixed list of candidate paths instead of trusting one.
package payload

import (
	"github.com/jmespath/go-jmespath"
)

// candidatePaths are probed in order. The first path that yields a list of
// property-shaped records wins.
var candidatePaths = []string{
	"data.data",
	"data",
	"properties",
	"units",
	"results",
	"[0]",
}

// propertyKeys are the fields a record list's first element is checked
// against. One match is enough to accept the list.
var propertyKeys = []string{
	"id", "unit_code", "title", "price", "area", "city_id", "name", "reference", "code",
}

// ExtractProperties returns the property record list found in the decoded CRM
// payload, or an empty slice when no candidate path holds one.
func ExtractProperties(payload any) []map[string]any {
	for _, path := range candidatePaths {
		current, err := jmespath.Search(path, payload)
		if err != nil || current == nil {
			continue
		}

		if records, ok := asPropertiesList(current); ok {
			return records
		}
	}

	if records, ok := asPropertiesList(payload); ok {
		return records
	}

	return nil
}

// IsPropertyRecord reports whether a record carries at least one usable
// identity key. Records without one are dropped before mapping.
func IsPropertyRecord(record map[string]any) bool {
	if record == nil {
		return false
	}

	_, hasID := record["id"]
	_, hasUnitCode := record["unit_code"]
	_, hasTitle := record["title"]

	return hasID || hasUnitCode || hasTitle
}

// FilterRecords keeps only the records that pass IsPropertyRecord.
func FilterRecords(records []map[string]any) []map[string]any {
	valid := make([]map[string]any, 0, len(records))
	for _, record := range records {
		if IsPropertyRecord(record) {
			valid = append(valid, record)
		}
	}
	return valid
}

// asPropertiesList accepts a value when it is a non-empty list whose first
// element looks like a property record.
func asPropertiesList(value any) ([]map[string]any, bool) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	first, ok := list[0].(map[string]any)
	if !ok {
		return nil, false
	}

	found := 0
	for _, key := range propertyKeys {
		if _, ok := first[key]; ok {
			found++
		}
	}
	if found < 1 {
		return nil, false
	}

	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	return records, true
}
