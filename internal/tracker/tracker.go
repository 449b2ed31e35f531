// Package tracker computes field-level diffs between a persisted record and
// an incoming partial update. It is a pure function layer; persistence and
// history appends happen in the CRUD engine.
package tracker

import (
	"encoding/json"
	"reflect"

	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
)

// NullSentinel is the literal form clients send to clear a field. It decodes
// to an actual JSON null before storage.
const NullSentinel = "null"

// Result carries the flat update set ready to merge into the record plus the
// changes that make up one AuditEntry.
type Result struct {
	UpdateSet map[string]interface{}
	Changes   []model.FieldChange
}

// Diff considers only fields present in both tracked and incoming. A field is
// skipped when the incoming value is absent, empty, or deeply equal to the
// existing one, so no-op writes never produce changes.
func Diff(existing map[string]interface{}, incoming map[string]interface{}, tracked []string) Result {
	res := Result{UpdateSet: make(map[string]interface{})}

	for _, field := range tracked {
		raw, ok := incoming[field]
		if !ok || isEmpty(raw) {
			continue
		}

		oldValue, hadOld := existing[field]
		newValue := raw
		action := model.ActionModify

		if isNullSentinel(raw) {
			newValue = nil
			action = model.ActionDelete
		} else if !hadOld || oldValue == nil {
			action = model.ActionAdd
		}

		if Equal(oldValue, newValue) {
			continue
		}

		res.UpdateSet[field] = newValue
		res.Changes = append(res.Changes, model.FieldChange{
			Action:   action,
			Field:    field,
			OldValue: normalize(oldValue),
			NewValue: normalize(newValue),
		})
	}

	return res
}

// Equal reports deep equality after JSON normalization, so a value read back
// from the store compares equal to the same value arriving from a request.
func Equal(a, b interface{}) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func isNullSentinel(v interface{}) bool {
	s, ok := v.(string)
	return ok && s == NullSentinel
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// normalize round-trips a value through JSON so maps, structs and numeric
// types collapse to the representation the store persists.
func normalize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
