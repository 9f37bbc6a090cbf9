// Package utils contains small helpers shared by the fake motor server, client and commands.
package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when a decoded value does not have the expected type.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	var expected ExpectedT
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// AssertType attempts to assert that the given interface argument is the given type parameter.
func AssertType[T any](from interface{}) (T, error) {
	var zero T
	asserted, ok := from.(T)
	if !ok {
		return zero, NewUnexpectedTypeError[T](from)
	}
	return asserted, nil
}
