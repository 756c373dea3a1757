// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package cerr provides a string type usable as a constant error value.
package cerr

// Error is a string that satisfies the error interface, so sentinel errors can
// be declared as constants and compared with errors.Is.
type Error string

func (e Error) Error() string {
	return string(e)
}
