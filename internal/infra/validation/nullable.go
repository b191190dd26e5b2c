package validation

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Nullable distinguishes a field that was omitted from one explicitly set to
// null. Omitted fields keep the stored value, null clears it.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: v}
}

// Null returns a Nullable explicitly set to null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true, Null: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		var zero T
		n.Value = zero
		return nil
	}
	n.Null = false
	return json.Unmarshal(data, &n.Value)
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Null {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value, or nil when omitted or null.
func (n Nullable[T]) Ptr() *T {
	if !n.Set || n.Null {
		return nil
	}
	v := n.Value
	return &v
}

// Apply returns the value that should be stored given the current one.
func (n Nullable[T]) Apply(current *T) *T {
	if !n.Set {
		return current
	}
	return n.Ptr()
}

func (n Nullable[T]) validationValue() any {
	if !n.Set || n.Null {
		return nil
	}
	return n.Value
}

type nullableValuer interface {
	validationValue() any
}

func nullableValue(field reflect.Value) any {
	if v, ok := field.Interface().(nullableValuer); ok {
		return v.validationValue()
	}
	return nil
}
