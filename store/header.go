// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"bytes"
	"slices"
)

// Header is the decoded record prologue.
type Header struct {
	Version   Version
	Length    int      // declared total record size, header included
	FieldMask FieldSet // raw mask, may contain unknown bits
}

// DecodeOptions bound header validation.
type DecodeOptions struct {
	// MaxRecordSize rejects declared lengths above this bound, to
	// bound memory use before attempting a body decode.
	MaxRecordSize int
	// KnownVersions restricts the accepted format versions. Empty
	// means all versions this package supports.
	KnownVersions []Version
}

func (o DecodeOptions) knows(v Version) bool {
	if len(o.KnownVersions) == 0 {
		return slices.Contains(SupportedVersions, v)
	}
	return slices.Contains(o.KnownVersions, v) && slices.Contains(SupportedVersions, v)
}

// DecodeHeader decodes one record prologue from the cursor. On
// ErrUnsupportedVersion, the returned header still carries the
// version and declared length so a caller in lenient mode can skip
// the record. On ErrTruncated, the caller should retry with a fresh
// cursor once more bytes are available.
func DecodeHeader(c *Cursor, options DecodeOptions) (Header, error) {
	var hdr Header
	start := c.Position()
	// The magic is checked as soon as its bytes are there, without
	// waiting for a full prologue: a desynchronized stream should not
	// stay suspended on bytes that can already be rejected.
	if c.Remaining() < len(Magic) {
		return hdr, newError(c.Limit(), ErrTruncated,
			"need %d bytes for record magic, %d available", len(Magic), c.Remaining())
	}
	magic, _ := c.Bytes(len(Magic))
	if !bytes.Equal(magic, Magic[:]) {
		return hdr, newError(start, ErrBadMagic, "got %#x", magic)
	}
	if c.Remaining() < PrologueSize-len(Magic) {
		return hdr, newError(c.Limit(), ErrTruncated,
			"need %d bytes for record prologue, %d available", PrologueSize, len(Magic)+c.Remaining())
	}
	version, _ := c.Uint8()
	length, _ := c.Uint16()
	hdr.Version = Version(version)
	hdr.Length = int(length)

	if !options.knows(hdr.Version) {
		// Still sanity-check the length so the caller knows whether
		// skipping the record is an option.
		if hdr.Length <= PrologueSize || (options.MaxRecordSize > 0 && hdr.Length > options.MaxRecordSize) {
			return hdr, newError(start+int64(len(Magic))+1, ErrBadLength,
				"declared length %d for unsupported version %d", hdr.Length, hdr.Version)
		}
		return hdr, newError(start+int64(len(Magic)), ErrUnsupportedVersion, "version %d", hdr.Version)
	}

	headerSize := HeaderSize(hdr.Version)
	if hdr.Length < headerSize || (options.MaxRecordSize > 0 && hdr.Length > options.MaxRecordSize) {
		return hdr, newError(start+int64(len(Magic))+1, ErrBadLength,
			"declared length %d, header is %d bytes, maximum is %d",
			hdr.Length, headerSize, options.MaxRecordSize)
	}

	if c.Remaining() < headerSize-PrologueSize {
		return hdr, newError(c.Limit(), ErrTruncated,
			"need %d bytes for field mask, %d available", headerSize-PrologueSize, c.Remaining())
	}
	mask, _ := c.Uint32()
	hdr.FieldMask = FieldSet(mask)
	return hdr, nil
}
