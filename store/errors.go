// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying decode failures. Use errors.Is to test
// them against errors returned by this package.
var (
	// ErrTruncated means not enough bytes were available. It is
	// transient as long as the byte source may still produce more.
	ErrTruncated = errors.New("truncated input")
	// ErrBadMagic means a record does not start with the magic
	// pattern: the stream is desynchronized.
	ErrBadMagic = errors.New("bad magic")
	// ErrUnsupportedVersion means the record declares a format
	// version this decoder does not know.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrBadLength means the declared record length is implausible
	// (smaller than the header or above the configured maximum).
	ErrBadLength = errors.New("implausible record length")
	// ErrFieldOverrun means the field mask requires more bytes than
	// the declared record length provides.
	ErrFieldOverrun = errors.New("field mask overruns record length")
	// ErrUnknownAddressFamily means an address field carries a family
	// tag that is neither IPv4 nor IPv6.
	ErrUnknownAddressFamily = errors.New("unknown address family")
	// ErrMalformed means a field's bytes are not a valid instance of
	// its type.
	ErrMalformed = errors.New("malformed field")
)

// IsStructural reports whether an error denotes a structural
// corruption of the stream rather than a failure local to one record.
// In strict mode, a structural error ends the outcome sequence.
func IsStructural(err error) bool {
	return errors.Is(err, ErrBadMagic) ||
		errors.Is(err, ErrBadLength) ||
		errors.Is(err, ErrFieldOverrun) ||
		errors.Is(err, ErrUnsupportedVersion)
}

// Error is a decode failure at a precise byte offset in the stream.
type Error struct {
	Offset int64 // absolute offset of the failure
	Err    error // one of the sentinel errors above
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("at byte %d: %s", e.Offset, e.Err)
	}
	return fmt.Sprintf("at byte %d: %s: %s", e.Offset, e.Err, e.Reason)
}

// Unwrap returns the sentinel error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(offset int64, err error, format string, args ...interface{}) *Error {
	return &Error{
		Offset: offset,
		Err:    err,
		Reason: fmt.Sprintf(format, args...),
	}
}
