package stream

import (
	"fmt"
)

// Flatten turns nested maps in m into a single level record whose keys are the paths joined by sep,
// e.g. {"status": {"name": "x"}} becomes {"status.name": "x"}. Slices and scalars are kept as values.
// An empty nested map is dropped.
func Flatten(m map[string]interface{}, sep string) Record {
	retval := NewRecord()
	flattenInto(retval, "", m, sep)
	return retval
}

func flattenInto(r Record, prefix string, m map[string]interface{}, sep string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			flattenInto(r, key, child, sep)
			continue
		}
		r.SetData(key, v)
	}
}

// CustomFieldKey returns the identifier of a custom field element: its "key", falling back to "name".
func CustomFieldKey(f map[string]interface{}) string {
	for _, name := range []string{"key", "name"} {
		if v, ok := f[name]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// CustomFieldName returns the identifier of a custom field element: its "name", falling back to "key".
func CustomFieldName(f map[string]interface{}) string {
	for _, name := range []string{"name", "key"} {
		if v, ok := f[name]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// FlattenCustomFields turns a list of {key|name, value} elements into columns named <prefix><key>,
// sanitised. Elements that are not maps or have no key are ignored.
// If allow is not nil then only keys found in allow are kept.
// Later elements with the same key overwrite earlier ones.
func FlattenCustomFields(prefix string, list interface{}, allow map[string]struct{}) Record {
	return flattenCustomFields(prefix, list, allow, CustomFieldKey)
}

// FlattenNamedCustomFields is like FlattenCustomFields without an allow list but prefers the
// element's "name" over its "key", which is how chat listings label their fields.
func FlattenNamedCustomFields(prefix string, list interface{}) Record {
	return flattenCustomFields(prefix, list, nil, CustomFieldName)
}

func flattenCustomFields(prefix string, list interface{}, allow map[string]struct{}, keyFn func(map[string]interface{}) string) Record {
	retval := NewRecord()
	items, ok := list.([]interface{})
	if !ok {
		return retval
	}
	for _, item := range items {
		f, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		key := keyFn(f)
		if key == "" {
			continue
		}
		if allow != nil {
			if _, ok := allow[key]; !ok {
				continue
			}
		}
		retval.SetData(SanitiseColumnName(prefix+key), f["value"])
	}
	return retval
}

// FlattenEvents turns a list of chat events into evt_ columns.
// For each event type we set evt_<type> = true and copy the fields of its data payload into
// evt_<type>_<field>, or the whole payload into evt_<type>_raw when it is not an object.
// The first event of each type wins.
func FlattenEvents(events []interface{}) Record {
	retval := NewRecord()
	seen := make(map[string]struct{})
	for _, item := range events {
		ev, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		t := fmt.Sprint(ev["type"])
		if ev["type"] == nil || t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		prefix := "evt_" + t
		retval.SetData(SanitiseColumnName(prefix), true)
		switch payload := ev["data"].(type) {
		case nil:
		case map[string]interface{}:
			for k, v := range payload {
				retval.SetData(SanitiseColumnName(prefix+"_"+k), v)
			}
		default:
			retval.SetData(SanitiseColumnName(prefix+"_raw"), payload)
		}
	}
	return retval
}
