package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SanitizeList flattens the CRM's inconsistent list shapes into a list of
// trimmed strings. Element objects collapse to their id, name or value field;
// bare strings split on commas. Empty entries are dropped.
func SanitizeList(input any) []string {
	switch value := input.(type) {
	case []any:
		result := make([]string, 0, len(value))
		for _, item := range value {
			s := stringifyListItem(item)
			if !isEmptyValue(s) {
				result = append(result, s)
			}
		}
		return result
	case string:
		if value == "" {
			return []string{}
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			s := strings.TrimSpace(part)
			if !isEmptyValue(s) {
				result = append(result, s)
			}
		}
		return result
	default:
		return []string{}
	}
}

func stringifyListItem(item any) string {
	switch value := item.(type) {
	case map[string]any:
		for _, key := range []string{"id", "name", "value"} {
			if v, ok := value[key]; ok {
				return stringifyScalar(v)
			}
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	case string:
		return strings.TrimSpace(value)
	default:
		return stringifyScalar(value)
	}
}

func stringifyScalar(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return ""
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// isEmptyValue mirrors the upstream notion of emptiness, which also treats a
// literal "0" as empty.
func isEmptyValue(s string) bool {
	return s == "" || s == "0"
}
