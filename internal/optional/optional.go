// Package optional implements an optional value, used where a collaborator
// may or may not have something to hand over.
package optional

import (
	"reflect"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/runtimex"
)

// Value is an optional value. The zero value of this structure
// is equivalent to the one you get when calling [None].
type Value[T any] struct {
	// indirect is nil when the value is empty.
	indirect *T
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Some constructs a value holding v, unless T is a pointer and v is nil,
// in which case [Some] is equivalent to [None].
func Some[T any](v T) Value[T] {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Pointer && rv.IsNil() {
		return None[T]()
	}
	return Value[T]{indirect: &v}
}

// IsNone returns whether this [Value] is empty.
func (v Value[T]) IsNone() bool {
	return v.indirect == nil
}

// Unwrap returns the underlying value or panics.
func (v Value[T]) Unwrap() T {
	runtimex.Assert(!v.IsNone(), "optional: unwrap of an empty value")
	return *v.indirect
}

// UnwrapOr returns the fallback if the [Value] is empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.IsNone() {
		return fallback
	}
	return *v.indirect
}
