// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"errors"
	"net/netip"
	"testing"

	"flowlog/common/helpers"
)

func TestDecodeAddr(t *testing.T) {
	cases := []struct {
		Pos      helpers.Pos
		Input    []byte
		Expected netip.Addr
		Err      error
	}{
		{helpers.Mark(), []byte{1, 192, 0, 2, 1}, netip.MustParseAddr("192.0.2.1"), nil},
		{helpers.Mark(), append([]byte{2}, netip.MustParseAddr("2001:db8::1").AsSlice()...),
			netip.MustParseAddr("2001:db8::1"), nil},
		{helpers.Mark(), []byte{3, 192, 0, 2, 1}, netip.Addr{}, ErrUnknownAddressFamily},
		{helpers.Mark(), []byte{0, 192, 0, 2, 1}, netip.Addr{}, ErrUnknownAddressFamily},
		{helpers.Mark(), []byte{1, 192, 0}, netip.Addr{}, ErrTruncated},
		{helpers.Mark(), []byte{2, 192, 0, 2, 1}, netip.Addr{}, ErrTruncated},
		{helpers.Mark(), []byte{}, netip.Addr{}, ErrTruncated},
	}
	for _, tc := range cases {
		got, err := decodeAddr(NewCursor(tc.Input, 0))
		if !errors.Is(err, tc.Err) {
			t.Errorf("%sdecodeAddr() error got %v, want %v", tc.Pos, err, tc.Err)
			continue
		}
		if diff := helpers.Diff(got, tc.Expected); diff != "" {
			t.Errorf("%sdecodeAddr() (-got, +want):\n%s", tc.Pos, diff)
		}
	}
}

func TestDecodeAddrCopies(t *testing.T) {
	input := []byte{1, 192, 0, 2, 1}
	got, err := decodeAddr(NewCursor(input, 0))
	if err != nil {
		t.Fatalf("decodeAddr() error:\n%+v", err)
	}
	// Mutating the input buffer must not change the decoded value.
	input[1] = 10
	if got != netip.MustParseAddr("192.0.2.1") {
		t.Fatalf("decodeAddr() aliases the input buffer, got %s", got)
	}
}

func TestDecodeTimestamp(t *testing.T) {
	c := NewCursor([]byte{0, 0, 0, 10, 0, 0, 0, 20}, 0)
	got, err := decodeTimestamp(c)
	if err != nil {
		t.Fatalf("decodeTimestamp() error:\n%+v", err)
	}
	if diff := helpers.Diff(got, Timestamp{Seconds: 10, Nanoseconds: 20}); diff != "" {
		t.Fatalf("decodeTimestamp() (-got, +want):\n%s", diff)
	}
	if _, err := decodeTimestamp(NewCursor([]byte{0, 0, 0, 10, 0}, 0)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("decodeTimestamp() on short input got %v, want ErrTruncated", err)
	}
}
