// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reader

import (
	"errors"
	"fmt"

	"flowlog/common/helpers"
	"flowlog/store"
)

// Configuration describes the configuration for the reader component.
type Configuration struct {
	// RecoveryPolicy tells what to do on a structural decode error:
	// stop (strict) or resynchronize on the next magic (lenient).
	RecoveryPolicy RecoveryPolicy
	// MaxRecordSize rejects records declaring a length above this
	// bound. It also bounds the memory retained for one record.
	MaxRecordSize int `validate:"min=9,max=65535"`
	// KnownVersions restricts the accepted format versions. Empty
	// means every version the decoder supports.
	KnownVersions []store.Version
}

// DefaultConfiguration returns the default configuration for the
// reader component.
func DefaultConfiguration() Configuration {
	return Configuration{
		RecoveryPolicy: RecoveryStrict,
		MaxRecordSize:  4096,
	}
}

// RecoveryPolicy tells how the reader reacts to structural errors.
type RecoveryPolicy int

const (
	// RecoveryStrict stops the outcome sequence at the first
	// structural error.
	RecoveryStrict RecoveryPolicy = iota
	// RecoveryLenient emits the error, then scans forward for the
	// next magic pattern and resumes.
	RecoveryLenient
)

func (rp RecoveryPolicy) String() string {
	switch rp {
	case RecoveryStrict:
		return "strict"
	case RecoveryLenient:
		return "lenient"
	}
	return "unknown"
}

// MarshalText turns a recovery policy into text.
func (rp RecoveryPolicy) MarshalText() ([]byte, error) {
	if rp != RecoveryStrict && rp != RecoveryLenient {
		return nil, errors.New("unknown recovery policy")
	}
	return []byte(rp.String()), nil
}

// UnmarshalText parses a recovery policy from text.
func (rp *RecoveryPolicy) UnmarshalText(input []byte) error {
	switch string(input) {
	case "strict":
		*rp = RecoveryStrict
	case "lenient":
		*rp = RecoveryLenient
	default:
		return fmt.Errorf("unknown recovery policy %q", string(input))
	}
	return nil
}

func init() {
	helpers.RegisterMapstructureUnmarshallerHook(
		helpers.DefaultValuesUnmarshallerHook(DefaultConfiguration()))
}
