// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package store implements the on-disk format of binary flow logs. A
// log file is a concatenation of self-describing records, each
// starting with a fixed prologue (magic bytes, format version,
// declared record length, field presence mask) followed by the
// encodings of the present fields in a canonical order. Everything is
// in network byte order.
//
// The package only decodes. It is pure and reentrant: decoding state
// lives in the cursor passed around, never in package-level
// variables.
package store

// Magic is the byte pattern starting every record. A record not
// starting with it means the stream is desynchronized.
var Magic = [2]byte{0xf1, 0x0d}

// Version identifies a revision of the record format. The field mask
// width and the canonical field table are fixed per version.
type Version uint8

// Version1 is the initial format revision: 32-bit field mask, 17
// known fields.
const Version1 Version = 1

const (
	// PrologueSize is the size of the version-independent part of a
	// record header: magic, version and declared length. It is enough
	// to know how many bytes to skip for an unsupported version.
	PrologueSize = len(Magic) + 1 + 2
	// maskSizeV1 is the field mask width for version 1.
	maskSizeV1 = 4
)

// SupportedVersions lists the versions this decoder understands.
var SupportedVersions = []Version{Version1}

// HeaderSize returns the full header size for a version, or 0 if the
// version is not supported (the mask width is then unknown).
func HeaderSize(v Version) int {
	if v == Version1 {
		return PrologueSize + maskSizeV1
	}
	return 0
}
