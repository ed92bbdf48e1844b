package models

import (
	"fmt"
	"sort"
)

// FieldMap is the storage form of a record snapshot: column name to value.
// Values produced by Change.Fields are canonical (string or nil), which keeps
// comparisons stable across JSON round trips.
type FieldMap map[string]any

// FieldChange is one entry of the diff between two snapshots.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// Keys returns the sorted key set.
func (m FieldMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Only returns a copy restricted to the given keys.
func (m FieldMap) Only(keys ...string) FieldMap {
	out := make(FieldMap, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

// MismatchedKey returns the first key present in one map but not the other.
func MismatchedKey(a, b FieldMap) (string, bool) {
	for _, k := range a.Keys() {
		if _, ok := b[k]; !ok {
			return k, true
		}
	}
	for _, k := range b.Keys() {
		if _, ok := a[k]; !ok {
			return k, true
		}
	}
	return "", false
}

// Diff lists the keys of newValues whose value differs in oldValues, sorted by field.
func Diff(oldValues, newValues FieldMap) []FieldChange {
	var changes []FieldChange
	for _, k := range newValues.Keys() {
		ov := oldValues[k]
		nv := newValues[k]
		if ValuesEqual(ov, nv) {
			continue
		}
		changes = append(changes, FieldChange{Field: k, OldValue: ov, NewValue: nv})
	}
	return changes
}

// NewValuesOf collects the proposed values of a diff.
func NewValuesOf(changes []FieldChange) FieldMap {
	out := make(FieldMap, len(changes))
	for _, c := range changes {
		out[c.Field] = c.NewValue
	}
	return out
}

// OldValuesOf collects the snapshot values of a diff.
func OldValuesOf(changes []FieldChange) FieldMap {
	out := make(FieldMap, len(changes))
	for _, c := range changes {
		out[c.Field] = c.OldValue
	}
	return out
}

func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
