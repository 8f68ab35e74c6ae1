// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// FlowRecord is one decoded flow. Only the fields listed in Fields
// carry a value; the other ones keep their zero value and must not be
// interpreted. A record is immutable once decoded and owns all its
// data (nothing aliases the input buffer).
type FlowRecord struct {
	Version Version
	Fields  FieldSet

	// UnknownFields are mask bits beyond the known field table for
	// this version. Their encodings are part of the trailing bytes
	// and are skipped, not interpreted.
	UnknownFields FieldSet
	// TrailingBytes counts declared record bytes after the last known
	// field. Non-zero together with UnknownFields means a newer
	// writer added fields this decoder does not know about.
	TrailingBytes int

	AgentAddr   netip.Addr
	SrcAddr     netip.Addr
	DstAddr     netip.Addr
	GatewayAddr netip.Addr
	SrcPort     uint16
	DstPort     uint16
	Proto       uint8
	TOS         uint8
	TCPFlags    uint8
	Packets     uint64
	Octets      uint64
	StartTime   Timestamp
	FinishTime  Timestamp
	InIface     uint32
	OutIface    uint32
	SrcAS       uint32
	DstAS       uint32
}

// HasUnrecognized reports whether the record carried fields this
// decoder could not name. The record itself is still valid.
func (fr *FlowRecord) HasUnrecognized() bool {
	return fr.UnknownFields != 0 || fr.TrailingBytes > 0
}

// DecodeBody decodes the body of a record whose header was already
// decoded. The cursor must span exactly the declared body (declared
// length minus header size): DecodeBody never reads outside of it.
// Unknown mask bits and unaccounted trailing bytes are recorded on
// the returned record, not treated as errors.
func DecodeBody(c *Cursor, hdr Header) (*FlowRecord, error) {
	record := &FlowRecord{
		Version: hdr.Version,
	}
	for _, info := range fieldTable(hdr.Version) {
		if !hdr.FieldMask.Has(info.field) {
			continue
		}
		if err := info.decode(c, record); err != nil {
			if errors.Is(err, ErrTruncated) {
				// The window is bounded by the declared length: an
				// underrun here means the mask and the length
				// disagree, not that more bytes are coming.
				return nil, newError(c.Limit(), ErrFieldOverrun,
					"field %s does not fit in declared length %d", info.name, hdr.Length)
			}
			return nil, err
		}
		record.Fields.Set(info.field)
	}
	record.UnknownFields = hdr.FieldMask &^ KnownFields(hdr.Version)
	record.TrailingBytes = c.Remaining()
	// Skip, do not interpret: the encodings of unknown fields are
	// only delimited by the declared length.
	_ = c.Skip(c.Remaining())
	return record, nil
}

// String renders a brief single-line view of the record, in the
// spirit of flow dump tools: only present fields appear.
func (fr *FlowRecord) String() string {
	var b strings.Builder
	b.WriteString("FLOW")
	writeAddr := func(name string, addr netip.Addr, port uint16, hasPort bool) {
		fmt.Fprintf(&b, " %s [%s]", name, addr)
		if hasPort {
			fmt.Fprintf(&b, ":%d", port)
		}
	}
	if fr.Fields.Has(FieldAgentAddr) {
		writeAddr("agent", fr.AgentAddr, 0, false)
	}
	if fr.Fields.Has(FieldProto) {
		fmt.Fprintf(&b, " proto %d", fr.Proto)
	}
	if fr.Fields.Has(FieldTOS) {
		fmt.Fprintf(&b, " tos %02x", fr.TOS)
	}
	if fr.Fields.Has(FieldTCPFlags) {
		fmt.Fprintf(&b, " tcpflags %02x", fr.TCPFlags)
	}
	if fr.Fields.Has(FieldSrcAddr) {
		writeAddr("src", fr.SrcAddr, fr.SrcPort, fr.Fields.Has(FieldSrcPort))
	}
	if fr.Fields.Has(FieldDstAddr) {
		writeAddr("dst", fr.DstAddr, fr.DstPort, fr.Fields.Has(FieldDstPort))
	}
	if fr.Fields.Has(FieldGatewayAddr) {
		writeAddr("gateway", fr.GatewayAddr, 0, false)
	}
	if !fr.Fields.Has(FieldSrcAddr) && fr.Fields.Has(FieldSrcPort) {
		fmt.Fprintf(&b, " src-port %d", fr.SrcPort)
	}
	if !fr.Fields.Has(FieldDstAddr) && fr.Fields.Has(FieldDstPort) {
		fmt.Fprintf(&b, " dst-port %d", fr.DstPort)
	}
	if fr.Fields.Has(FieldPackets) {
		fmt.Fprintf(&b, " packets %d", fr.Packets)
	}
	if fr.Fields.Has(FieldOctets) {
		fmt.Fprintf(&b, " octets %d", fr.Octets)
	}
	if fr.Fields.Has(FieldStartTime) {
		fmt.Fprintf(&b, " start %d.%09d", fr.StartTime.Seconds, fr.StartTime.Nanoseconds)
	}
	if fr.Fields.Has(FieldFinishTime) {
		fmt.Fprintf(&b, " finish %d.%09d", fr.FinishTime.Seconds, fr.FinishTime.Nanoseconds)
	}
	if fr.Fields.Has(FieldInIface) || fr.Fields.Has(FieldOutIface) {
		fmt.Fprintf(&b, " ifaces %d>%d", fr.InIface, fr.OutIface)
	}
	if fr.Fields.Has(FieldSrcAS) || fr.Fields.Has(FieldDstAS) {
		fmt.Fprintf(&b, " as %d>%d", fr.SrcAS, fr.DstAS)
	}
	if fr.HasUnrecognized() {
		fmt.Fprintf(&b, " unrecognized [%s +%dB]", fr.UnknownFields, fr.TrailingBytes)
	}
	return b.String()
}
