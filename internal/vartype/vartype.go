// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package vartype provides optional values that carry an explicit "undefined" marker instead of
// relying on sentinel values like 0 or -1.
package vartype

import (
	"fmt"
)

// VarFloat64 is a float64 value with definedness tracking. Speeds, bearings and altitudes use it.
type VarFloat64 = Variable[float64]

// Variable holds a value of type T together with a flag telling whether the value is defined.
// The zero value is undefined.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable returns a defined Variable holding value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Undefined returns a Variable without a value.
func Undefined[T any]() Variable[T] {
	return Variable[T]{}
}

// Reset clears the value and marks the Variable as undefined.
func (v *Variable[T]) Reset() {
	var zero T
	v.value = zero
	v.isset = false
}

// Value returns the stored value. For an undefined Variable this is the zero value of T.
func (v Variable[T]) Value() T {
	return v.value
}

// Get returns the stored value and whether it is defined.
func (v Variable[T]) Get() (T, bool) {
	return v.value, v.isset
}

// ValueOr returns the stored value or fallback if the Variable is undefined.
func (v Variable[T]) ValueOr(fallback T) T {
	if !v.isset {
		return fallback
	}
	return v.value
}

// Set assigns val and marks the Variable as defined.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// IsSet reports whether the Variable holds a value.
func (v Variable[T]) IsSet() bool {
	return v.isset
}

// String returns the value's string form, or "undefined".
func (v Variable[T]) String() string {
	if !v.isset {
		return "undefined"
	}
	return fmt.Sprint(v.value)
}
