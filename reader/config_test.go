// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reader

import (
	"testing"

	"flowlog/common/helpers"
	"flowlog/store"
)

func TestConfigurationDecode(t *testing.T) {
	helpers.TestConfigurationDecode(t, helpers.ConfigurationDecodeCases{
		{
			Description:   "nil",
			Initial:       func() any { return DefaultConfiguration() },
			Configuration: func() any { return nil },
			Expected:      DefaultConfiguration(),
		}, {
			Description:   "lenient policy",
			Initial:       func() any { return Configuration{} },
			Configuration: func() any { return map[string]any{"recovery-policy": "lenient"} },
			Expected: Configuration{
				RecoveryPolicy: RecoveryLenient,
				MaxRecordSize:  4096,
			},
		}, {
			Description: "explicit everything",
			Initial:     func() any { return Configuration{} },
			Configuration: func() any {
				return map[string]any{
					"recovery-policy": "strict",
					"max-record-size": 1024,
					"known-versions":  []int{1},
				}
			},
			Expected: Configuration{
				RecoveryPolicy: RecoveryStrict,
				MaxRecordSize:  1024,
				KnownVersions:  []store.Version{1},
			},
		}, {
			Description:   "bad policy",
			Initial:       func() any { return Configuration{} },
			Configuration: func() any { return map[string]any{"recovery-policy": "optimistic"} },
			Error:         true,
		}, {
			Description:   "max record size too small",
			Initial:       func() any { return Configuration{} },
			Configuration: func() any { return map[string]any{"max-record-size": 4} },
			Error:         true,
		},
	})
}

func TestRecoveryPolicyText(t *testing.T) {
	for _, policy := range []RecoveryPolicy{RecoveryStrict, RecoveryLenient} {
		text, err := policy.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) error:\n%+v", policy, err)
		}
		var got RecoveryPolicy
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error:\n%+v", text, err)
		}
		if got != policy {
			t.Fatalf("round trip got %s, want %s", got, policy)
		}
	}
	if _, err := RecoveryPolicy(42).MarshalText(); err == nil {
		t.Fatal("MarshalText(42) did not error")
	}
}
