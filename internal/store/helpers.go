package store

import "encoding/json"

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// unmarshalStrings converts JSON text back to []string.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var list []string
	_ = json.Unmarshal([]byte(s), &list)
	if len(list) == 0 {
		return nil
	}
	return list
}

// marshalJSON stores structured columns (annotations, type parameters).
func marshalJSON[T any](v []T) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func unmarshalJSON[T any](s string) []T {
	if s == "" || s == "null" {
		return nil
	}
	var v []T
	_ = json.Unmarshal([]byte(s), &v)
	if len(v) == 0 {
		return nil
	}
	return v
}
