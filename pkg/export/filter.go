// Package export turns harvested member rows into downloadable blobs,
// applying client-supplied filter predicates first.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"tgranger/pkg/errors"
	"tgranger/pkg/models"
)

// Filter is one predicate over a member field. A filter list is combined
// with logical AND.
type Filter struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// Supported operators.
const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpContains = "contains"
	OpIn       = "in"
	OpRange    = "range"
)

// Rows returns the members matching every filter.
func Rows(members []models.Member, filters []Filter) ([]models.Member, error) {
	if len(filters) == 0 {
		return members, nil
	}
	var out []models.Member
	for _, m := range members {
		ok, err := matches(m, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func matches(m models.Member, filters []Filter) (bool, error) {
	for _, f := range filters {
		value, ok := fieldValue(m, f.Field)
		if !ok {
			return false, errors.InvalidInput("unknown filter field: %s", f.Field)
		}
		match, err := apply(f, value)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

// fieldValue resolves a filter field path on a member. Unrecognized paths
// fall through to the raw payload keys.
func fieldValue(m models.Member, field string) (interface{}, bool) {
	switch field {
	case "id", "user_id":
		return m.UserID, true
	case "group_id":
		return m.GroupID, true
	case "username":
		return m.Username, true
	case "first_name":
		return m.FirstName, true
	case "last_name":
		return m.LastName, true
	case "phone":
		return m.Phone, true
	case "hidden", "is_hidden":
		return m.IsHidden, true
	case "online", "is_online":
		return m.IsOnline, true
	case "last_seen":
		return m.LastSeen, true
	case "risk", "risk_level":
		return m.RiskLevel, true
	case "privacy_score":
		return m.PrivacyScore, true
	}
	if m.RawPayload != nil {
		key := strings.TrimPrefix(field, "raw.")
		if v, ok := m.RawPayload[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func apply(f Filter, value interface{}) (bool, error) {
	switch f.Op {
	case OpEq:
		return equal(value, f.Value), nil
	case OpNeq:
		return !equal(value, f.Value), nil
	case OpContains:
		return strings.Contains(
			strings.ToLower(asString(value)),
			strings.ToLower(asString(f.Value)),
		), nil
	case OpIn:
		list, ok := f.Value.([]interface{})
		if !ok {
			return false, errors.InvalidInput("filter op %q needs a list value", OpIn)
		}
		for _, candidate := range list {
			if equal(value, candidate) {
				return true, nil
			}
		}
		return false, nil
	case OpRange:
		return inRange(value, f.Value)
	default:
		return false, errors.InvalidInput("unknown filter operator: %s", f.Op)
	}
}

// equal compares loosely: numbers as float64, everything else by string
// form. Filter values arrive from JSON, so numeric literals are float64.
func equal(a, b interface{}) bool {
	fa, aok := asNumber(a)
	fb, bok := asNumber(b)
	if aok && bok {
		return fa == fb
	}
	return asString(a) == asString(b)
}

// inRange expects the filter value as [min, max] or {"min":..,"max":..}.
func inRange(value, bound interface{}) (bool, error) {
	v, ok := asNumber(value)
	if !ok {
		return false, errors.InvalidInput("filter op %q needs a numeric field", OpRange)
	}

	var min, max float64
	switch b := bound.(type) {
	case []interface{}:
		if len(b) != 2 {
			return false, errors.InvalidInput("filter op %q needs [min, max]", OpRange)
		}
		var okMin, okMax bool
		min, okMin = asNumber(b[0])
		max, okMax = asNumber(b[1])
		if !okMin || !okMax {
			return false, errors.InvalidInput("filter op %q needs numeric bounds", OpRange)
		}
	case map[string]interface{}:
		var okMin, okMax bool
		min, okMin = asNumber(b["min"])
		max, okMax = asNumber(b["max"])
		if !okMin || !okMax {
			return false, errors.InvalidInput("filter op %q needs min and max", OpRange)
		}
	default:
		return false, errors.InvalidInput("filter op %q needs [min, max]", OpRange)
	}
	return v >= min && v <= max, nil
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
