// Package ordinal maps enumerations to the small integers used on the wire.
//
// Every enumeration owns one Table. Decoding an integer that is not in the
// table fails with an *UnknownOrdinalError; there is no fallback variant.
package ordinal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnknownOrdinalError is returned when a wire value has no variant.
type UnknownOrdinalError struct {
	Enum  string
	Value int64
}

func (e *UnknownOrdinalError) Error() string {
	return fmt.Sprintf("unknown %s ordinal %d", e.Enum, e.Value)
}

// UnknownVariantError is returned when encoding a value that was never
// registered in the table.
type UnknownVariantError struct {
	Enum    string
	Variant any
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown %s variant %v", e.Enum, e.Variant)
}

// Table is a bidirectional variant <-> ordinal mapping.
type Table[T comparable] struct {
	name     string
	toWire   map[T]uint8
	fromWire map[uint8]T
}

// Entry pairs a variant with its wire ordinal.
type Entry[T comparable] struct {
	Variant T
	Ordinal uint8
}

// NewTable builds a table. It panics on duplicate variants or ordinals since
// tables are package-level declarations.
func NewTable[T comparable](name string, entries ...Entry[T]) *Table[T] {
	t := &Table[T]{
		name:     name,
		toWire:   make(map[T]uint8, len(entries)),
		fromWire: make(map[uint8]T, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.toWire[e.Variant]; dup {
			panic(fmt.Sprintf("ordinal: duplicate %s variant %v", name, e.Variant))
		}
		if _, dup := t.fromWire[e.Ordinal]; dup {
			panic(fmt.Sprintf("ordinal: duplicate %s ordinal %d", name, e.Ordinal))
		}
		t.toWire[e.Variant] = e.Ordinal
		t.fromWire[e.Ordinal] = e.Variant
	}
	return t
}

// Name returns the enumeration name used in errors.
func (t *Table[T]) Name() string {
	return t.name
}

// Encode returns the ordinal of v.
func (t *Table[T]) Encode(v T) (uint8, error) {
	o, ok := t.toWire[v]
	if !ok {
		return 0, &UnknownVariantError{Enum: t.name, Variant: v}
	}
	return o, nil
}

// Decode returns the variant for the ordinal n.
func (t *Table[T]) Decode(n int64) (T, error) {
	var zero T
	if n < 0 || n > 255 {
		return zero, &UnknownOrdinalError{Enum: t.name, Value: n}
	}
	v, ok := t.fromWire[uint8(n)]
	if !ok {
		return zero, &UnknownOrdinalError{Enum: t.name, Value: n}
	}
	return v, nil
}

// MarshalJSON encodes v as a bare JSON integer.
func (t *Table[T]) MarshalJSON(v T) ([]byte, error) {
	o, err := t.Encode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(o)
}

// UnmarshalJSON decodes a bare JSON integer. Strings, floats and null are
// rejected.
func (t *Table[T]) UnmarshalJSON(data []byte) (T, error) {
	var zero T
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return zero, fmt.Errorf("decode %s ordinal: null is not an ordinal", t.name)
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return zero, fmt.Errorf("decode %s ordinal: %w", t.name, err)
	}
	return t.Decode(n)
}
