package stream

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Record is an open record: a map of column name to value as returned by the helpdesk API or a sink.
// Missing columns read as nil, which sinks treat as null.
// Nested maps and slices are kept until they are flattened or serialised.
type Record struct {
	data map[string]interface{}
}

// NewRecord creates a new empty Record. Records are passed by value since the map is a reference anyway.
func NewRecord() Record {
	return Record{data: make(map[string]interface{})}
}

// NewRecordFromMap wraps m without copying it.
func NewRecordFromMap(m map[string]interface{}) Record {
	if m == nil {
		m = make(map[string]interface{})
	}
	return Record{data: m}
}

func NewNilRecord() Record {
	return Record{}
}

func (sr Record) RecordIsNil() bool {
	return sr.data == nil
}

func (sr Record) SetData(name string, value interface{}) {
	sr.data[name] = value
}

// GetData returns the value for name or nil if the column is missing.
func (sr Record) GetData(name string) interface{} {
	return sr.data[name]
}

// LookupData returns the value for name and whether the column exists.
func (sr Record) LookupData(name string) (interface{}, bool) {
	v, ok := sr.data[name]
	return v, ok
}

func (sr Record) HasData(name string) bool {
	_, ok := sr.data[name]
	return ok
}

// RenameData moves the value at from to to. It is a no-op if from does not exist.
func (sr Record) RenameData(from, to string) {
	if from == to {
		return
	}
	if v, ok := sr.data[from]; ok {
		delete(sr.data, from)
		sr.data[to] = v
	}
}

func (sr Record) GetDataMap() map[string]interface{} {
	return sr.data
}

func (sr Record) GetDataLen() int {
	return len(sr.data)
}

// GetSortedDataMapKeys will return a slice of the keys found in map sr.data.
func (sr Record) GetSortedDataMapKeys() []string {
	retval := make([]string, 0, len(sr.data))
	for k := range sr.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

// CopyTo copies all values in sr into t, overwriting existing keys.
func (sr Record) CopyTo(t Record) {
	for k, v := range sr.data {
		t.SetData(k, v)
	}
}

// Copy returns a shallow copy of sr.
func (sr Record) Copy() Record {
	retval := Record{data: make(map[string]interface{}, len(sr.data))}
	sr.CopyTo(retval)
	return retval
}

// SanitiseColumns renames every column through SanitiseColumnName.
// If two source names collapse onto the same column the last one in sorted key order wins.
func (sr Record) SanitiseColumns() {
	keys := sr.GetSortedDataMapKeys()
	renamed := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		renamed[SanitiseColumnName(k)] = sr.data[k]
	}
	for k := range sr.data {
		delete(sr.data, k)
	}
	for k, v := range renamed {
		sr.data[k] = v
	}
}

// GetJson returns the JSON representation of the record with values normalised for sinks.
func (sr Record) GetJson() (string, error) {
	out := make(map[string]interface{}, len(sr.data))
	for k, v := range sr.data {
		out[k] = NormaliseValue(v)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("error marshalling record to JSON: %w", err)
	}
	return string(b), nil
}

func (sr Record) String() string {
	s, err := sr.GetJson()
	if err != nil {
		return fmt.Sprint(sr.data)
	}
	return s
}

// GetUnionKeys returns the sorted union of column names across recs.
func GetUnionKeys(recs []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range recs {
		for k := range r.data {
			seen[k] = struct{}{}
		}
	}
	retval := make([]string, 0, len(seen))
	for k := range seen {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}
