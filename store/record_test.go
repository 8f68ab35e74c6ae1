// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"testing"

	"flowlog/common/helpers"
)

// decodeOneRecord decodes header and body from a complete record,
// with the record starting at the provided absolute offset.
func decodeOneRecord(t *testing.T, input []byte, base int64) (*FlowRecord, error) {
	t.Helper()
	cursor := NewCursor(input, base)
	hdr, err := DecodeHeader(cursor, DecodeOptions{MaxRecordSize: 1024})
	if err != nil {
		t.Fatalf("DecodeHeader() error:\n%+v", err)
	}
	body, err := cursor.Bytes(hdr.Length - HeaderSize(hdr.Version))
	if err != nil {
		t.Fatalf("Bytes() error:\n%+v", err)
	}
	return DecodeBody(NewCursor(body, cursor.Position()-int64(len(body))), hdr)
}

func TestDecodeBody(t *testing.T) {
	// Spec scenario: proto 6, ports 443/51000, octets 1500 and
	// nothing else.
	mask := FieldSet(0)
	mask.Set(FieldSrcPort)
	mask.Set(FieldDstPort)
	mask.Set(FieldProto)
	mask.Set(FieldOctets)
	body := []byte{}
	body = binary.BigEndian.AppendUint16(body, 443)
	body = binary.BigEndian.AppendUint16(body, 51000)
	body = append(body, 6)
	body = binary.BigEndian.AppendUint64(body, 1500)

	got, err := decodeOneRecord(t, BuildRecord(mask, body), 0)
	if err != nil {
		t.Fatalf("DecodeBody() error:\n%+v", err)
	}
	expected := &FlowRecord{
		Version: Version1,
		Fields:  mask,
		SrcPort: 443,
		DstPort: 51000,
		Proto:   6,
		Octets:  1500,
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("DecodeBody() (-got, +want):\n%s", diff)
	}
	if got.Fields != mask {
		t.Fatalf("present fields got %s, want %s", got.Fields, mask)
	}
}

func TestDecodeBodyAllFields(t *testing.T) {
	mask := KnownFields(Version1)
	body := []byte{}
	appendAddr := func(addr string) {
		a := netip.MustParseAddr(addr)
		if a.Is4() {
			body = append(body, afIPv4)
		} else {
			body = append(body, afIPv6)
		}
		body = append(body, a.AsSlice()...)
	}
	appendAddr("192.0.2.254")   // agent
	appendAddr("2001:db8::1")   // src
	appendAddr("2001:db8::2")   // dst
	appendAddr("192.0.2.1")     // gateway
	body = binary.BigEndian.AppendUint16(body, 443)  // src port
	body = binary.BigEndian.AppendUint16(body, 5353) // dst port
	body = append(body, 17, 0x10, 0)                 // proto, tos, tcp flags
	body = binary.BigEndian.AppendUint64(body, 7)    // packets
	body = binary.BigEndian.AppendUint64(body, 4200) // octets
	body = binary.BigEndian.AppendUint32(body, 100)  // start secs
	body = binary.BigEndian.AppendUint32(body, 5)    // start nsecs
	body = binary.BigEndian.AppendUint32(body, 200)  // finish secs
	body = binary.BigEndian.AppendUint32(body, 6)    // finish nsecs
	body = binary.BigEndian.AppendUint32(body, 3)    // in iface
	body = binary.BigEndian.AppendUint32(body, 4)    // out iface
	body = binary.BigEndian.AppendUint32(body, 64500)
	body = binary.BigEndian.AppendUint32(body, 64501)

	got, err := decodeOneRecord(t, BuildRecord(mask, body), 0)
	if err != nil {
		t.Fatalf("DecodeBody() error:\n%+v", err)
	}
	expected := &FlowRecord{
		Version:     Version1,
		Fields:      mask,
		AgentAddr:   netip.MustParseAddr("192.0.2.254"),
		SrcAddr:     netip.MustParseAddr("2001:db8::1"),
		DstAddr:     netip.MustParseAddr("2001:db8::2"),
		GatewayAddr: netip.MustParseAddr("192.0.2.1"),
		SrcPort:     443,
		DstPort:     5353,
		Proto:       17,
		TOS:         0x10,
		Packets:     7,
		Octets:      4200,
		StartTime:   Timestamp{100, 5},
		FinishTime:  Timestamp{200, 6},
		InIface:     3,
		OutIface:    4,
		SrcAS:       64500,
		DstAS:       64501,
	}
	if diff := helpers.Diff(got, expected); diff != "" {
		t.Fatalf("DecodeBody() (-got, +want):\n%s", diff)
	}
}

func TestDecodeBodyFieldOverrun(t *testing.T) {
	// Mask asks for a 4-byte field, declared length only leaves 3
	// bytes of body.
	mask := FieldSet(0)
	mask.Set(FieldInIface)
	input := BuildRecord(mask, []byte{0, 0, 1})
	_, err := decodeOneRecord(t, input, 0)
	if !errors.Is(err, ErrFieldOverrun) {
		t.Fatalf("DecodeBody() error got %v, want ErrFieldOverrun", err)
	}
	var decodeErr *Error
	if !errors.As(err, &decodeErr) {
		t.Fatalf("DecodeBody() error is not a *store.Error: %v", err)
	}
	// The failure is where the fourth byte would have been: right
	// past the declared record end.
	if expected := int64(len(input)); decodeErr.Offset != expected {
		t.Fatalf("error offset got %d, want %d", decodeErr.Offset, expected)
	}
}

func TestDecodeBodyUnknownAddressFamily(t *testing.T) {
	mask := FieldSet(0)
	mask.Set(FieldSrcAddr)
	_, err := decodeOneRecord(t, BuildRecord(mask, []byte{7, 0, 0, 0, 0}), 0)
	if !errors.Is(err, ErrUnknownAddressFamily) {
		t.Fatalf("DecodeBody() error got %v, want ErrUnknownAddressFamily", err)
	}
	if IsStructural(err) {
		t.Fatalf("unknown address family should not be structural")
	}
}

func TestDecodeBodyUnrecognizedFields(t *testing.T) {
	// Bit 20 is beyond the known table; its encoding lands in the
	// trailing bytes.
	mask := FieldSet(1<<FieldProto | 1<<20)
	got, err := decodeOneRecord(t, BuildRecord(mask, []byte{6, 0xde, 0xad}), 0)
	if err != nil {
		t.Fatalf("DecodeBody() error:\n%+v", err)
	}
	if !got.HasUnrecognized() {
		t.Fatalf("HasUnrecognized() got false, want true")
	}
	if got.UnknownFields != 1<<20 {
		t.Fatalf("UnknownFields got %#x, want %#x", uint32(got.UnknownFields), uint32(1<<20))
	}
	if got.TrailingBytes != 2 {
		t.Fatalf("TrailingBytes got %d, want 2", got.TrailingBytes)
	}
	if !got.Fields.Has(FieldProto) || got.Proto != 6 {
		t.Fatalf("known field lost: fields %s, proto %d", got.Fields, got.Proto)
	}
	if got.Fields.Has(Field(20)) {
		t.Fatalf("unknown bit should not be a present field")
	}
}

func TestFlowRecordString(t *testing.T) {
	mask := FieldSet(0)
	mask.Set(FieldSrcAddr)
	mask.Set(FieldDstAddr)
	mask.Set(FieldSrcPort)
	mask.Set(FieldDstPort)
	mask.Set(FieldProto)
	body := []byte{afIPv4, 192, 0, 2, 1, afIPv4, 192, 0, 2, 2}
	body = binary.BigEndian.AppendUint16(body, 443)
	body = binary.BigEndian.AppendUint16(body, 51000)
	body = append(body, 6)
	got, err := decodeOneRecord(t, BuildRecord(mask, body), 0)
	if err != nil {
		t.Fatalf("DecodeBody() error:\n%+v", err)
	}
	expected := "FLOW proto 6 src [192.0.2.1]:443 dst [192.0.2.2]:51000"
	if got.String() != expected {
		t.Fatalf("String() got %q, want %q", got.String(), expected)
	}
}
