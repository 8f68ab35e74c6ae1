// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"net/netip"
)

// Address family tags on the wire. The family is explicit: the
// decoder never guesses it from the number of remaining bytes.
const (
	afIPv4 = 1
	afIPv6 = 2
)

// Timestamp is a collector-relative instant: seconds and nanoseconds
// as found on the wire. The decoder does not convert it to wall-clock
// time, it is opaque and passed through verbatim.
type Timestamp struct {
	Seconds     uint32
	Nanoseconds uint32
}

// decodeAddr decodes an address field: a 1-byte family tag followed
// by 4 (IPv4) or 16 (IPv6) address bytes. The bytes are copied into
// the returned netip.Addr.
func decodeAddr(c *Cursor) (netip.Addr, error) {
	tagOffset := c.Position()
	family, err := c.Uint8()
	if err != nil {
		return netip.Addr{}, err
	}
	switch family {
	case afIPv4:
		raw, err := c.Bytes(4)
		if err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom4([4]byte(raw)), nil
	case afIPv6:
		raw, err := c.Bytes(16)
		if err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom16([16]byte(raw)), nil
	}
	return netip.Addr{}, newError(tagOffset, ErrUnknownAddressFamily, "family tag %d", family)
}

// decodeTimestamp decodes a timestamp field: two 32-bit integers,
// seconds then nanoseconds.
func decodeTimestamp(c *Cursor) (Timestamp, error) {
	secs, err := c.Uint32()
	if err != nil {
		return Timestamp{}, err
	}
	nsecs, err := c.Uint32()
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Seconds: secs, Nanoseconds: nsecs}, nil
}
