package models

import (
	"bytes"
	"encoding/json"
)

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldNull
	fieldValue
)

// Field is an optional patch value. A Field is either unset (the zero value),
// explicitly null (clear the stored value), or set to a value.
type Field[T any] struct {
	state fieldState
	value T
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: fieldValue, value: v}
}

// Null returns a Field that clears the stored value.
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

// IsSet reports whether the field was provided, either as null or as a value.
func (f Field[T]) IsSet() bool {
	return f.state != fieldUnset
}

// IsNull reports whether the field explicitly clears the stored value.
func (f Field[T]) IsNull() bool {
	return f.state == fieldNull
}

// Get returns the value and whether the field holds one.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldValue
}

// Ptr returns a pointer to a copy of the value, or nil when unset or null.
func (f Field[T]) Ptr() *T {
	if f.state != fieldValue {
		return nil
	}
	v := f.value
	return &v
}

// Apply writes the field onto dst: a value replaces it, null clears it,
// and an unset field leaves it alone.
func (f Field[T]) Apply(dst **T) {
	switch f.state {
	case fieldValue:
		*dst = f.Ptr()
	case fieldNull:
		*dst = nil
	}
}

// MarshalJSON encodes the value, or null when the field holds none.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldValue {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON marks the field as provided. It is only invoked for keys
// present in the document, so absent keys stay unset.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}
