// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !release

package store

import "encoding/binary"

// BuildRecord assembles the bytes of one version-1 record for tests:
// prologue, mask, then the provided body. The declared length is
// computed from the body.
func BuildRecord(mask FieldSet, body []byte) []byte {
	return BuildRecordLength(mask, body, HeaderSize(Version1)+len(body))
}

// BuildRecordLength is BuildRecord with an explicit declared length,
// to craft records whose length and mask disagree.
func BuildRecordLength(mask FieldSet, body []byte, length int) []byte {
	record := make([]byte, 0, HeaderSize(Version1)+len(body))
	record = append(record, Magic[:]...)
	record = append(record, byte(Version1))
	record = binary.BigEndian.AppendUint16(record, uint16(length))
	record = binary.BigEndian.AppendUint32(record, uint32(mask))
	return append(record, body...)
}
