// Package runtimex contains [runtime] extensions. The link uses them for
// window invariants whose violation means a bug in the caller, never bad
// input from the peer.
package runtimex

import "fmt"

// PanicIfFalse panics with message unless stmt holds.
func PanicIfFalse(stmt bool, message any) {
	if stmt {
		return
	}
	panic(message)
}

// Assert is an alias for [PanicIfFalse] that reads better at invariant checks.
var Assert = PanicIfFalse

// PanicOnError panics with err wrapped by message, so that [errors.Is]
// still works on the recovered value.
func PanicOnError(err error, message string) {
	if err == nil {
		return
	}
	panic(fmt.Errorf("%s: %w", message, err))
}
