// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package store

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Field identifies one optional record field. The numeric value is
// the bit position in the on-disk field mask and also the position in
// the canonical decode order: fields are always encoded in increasing
// Field order, absent fields are simply not encoded.
type Field uint8

// Known fields for version 1, in canonical order.
const (
	FieldAgentAddr Field = iota
	FieldSrcAddr
	FieldDstAddr
	FieldGatewayAddr
	FieldSrcPort
	FieldDstPort
	FieldProto
	FieldTOS
	FieldTCPFlags
	FieldPackets
	FieldOctets
	FieldStartTime
	FieldFinishTime
	FieldInIface
	FieldOutIface
	FieldSrcAS
	FieldDstAS
)

// FieldSet is a set of fields, stored with the on-disk mask layout
// (bit i set means Field(i) is present).
type FieldSet uint32

// Has reports whether the field is in the set.
func (fs FieldSet) Has(f Field) bool {
	return fs&(1<<f) != 0
}

// Set adds a field to the set.
func (fs *FieldSet) Set(f Field) {
	*fs |= 1 << f
}

// Bits returns the set as a bitset for enumeration.
func (fs FieldSet) Bits() *bitset.BitSet {
	return bitset.From([]uint64{uint64(fs)})
}

// String lists the fields in the set, unknown bits by their position.
func (fs FieldSet) String() string {
	names := []string{}
	for i, ok := fs.Bits().NextSet(0); ok; i, ok = fs.Bits().NextSet(i + 1) {
		names = append(names, Field(i).String())
	}
	return strings.Join(names, ",")
}

// fieldInfo associates a field with its name and decode routine. The
// decode routine reads the field's fixed-width encoding from the
// cursor and stores the typed value into the record.
type fieldInfo struct {
	field  Field
	name   string
	decode func(*Cursor, *FlowRecord) error
}

// fieldTableV1 is the canonical field table for version 1. Table
// order is decode order.
var fieldTableV1 = []fieldInfo{
	{FieldAgentAddr, "agent-addr", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.AgentAddr, err = decodeAddr(c)
		return err
	}},
	{FieldSrcAddr, "src-addr", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.SrcAddr, err = decodeAddr(c)
		return err
	}},
	{FieldDstAddr, "dst-addr", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.DstAddr, err = decodeAddr(c)
		return err
	}},
	{FieldGatewayAddr, "gateway-addr", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.GatewayAddr, err = decodeAddr(c)
		return err
	}},
	{FieldSrcPort, "src-port", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.SrcPort, err = c.Uint16()
		return err
	}},
	{FieldDstPort, "dst-port", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.DstPort, err = c.Uint16()
		return err
	}},
	{FieldProto, "proto", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.Proto, err = c.Uint8()
		return err
	}},
	{FieldTOS, "tos", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.TOS, err = c.Uint8()
		return err
	}},
	{FieldTCPFlags, "tcp-flags", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.TCPFlags, err = c.Uint8()
		return err
	}},
	{FieldPackets, "packets", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.Packets, err = c.Uint64()
		return err
	}},
	{FieldOctets, "octets", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.Octets, err = c.Uint64()
		return err
	}},
	{FieldStartTime, "start-time", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.StartTime, err = decodeTimestamp(c)
		return err
	}},
	{FieldFinishTime, "finish-time", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.FinishTime, err = decodeTimestamp(c)
		return err
	}},
	{FieldInIface, "in-iface", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.InIface, err = c.Uint32()
		return err
	}},
	{FieldOutIface, "out-iface", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.OutIface, err = c.Uint32()
		return err
	}},
	{FieldSrcAS, "src-as", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.SrcAS, err = c.Uint32()
		return err
	}},
	{FieldDstAS, "dst-as", func(c *Cursor, fr *FlowRecord) (err error) {
		fr.DstAS, err = c.Uint32()
		return err
	}},
}

// knownV1 is the set of mask bits version 1 gives a meaning to.
var knownV1 = func() *bitset.BitSet {
	b := bitset.New(uint(len(fieldTableV1)))
	for _, info := range fieldTableV1 {
		b.Set(uint(info.field))
	}
	return b
}()

// fieldTable returns the canonical field table for a version, or nil
// if the version is not supported.
func fieldTable(v Version) []fieldInfo {
	if v == Version1 {
		return fieldTableV1
	}
	return nil
}

// KnownFields returns the set of fields a version defines.
func KnownFields(v Version) FieldSet {
	if v != Version1 {
		return 0
	}
	var fs FieldSet
	for i, ok := knownV1.NextSet(0); ok; i, ok = knownV1.NextSet(i + 1) {
		fs.Set(Field(i))
	}
	return fs
}

// String returns the field name, or its bit position for a field
// outside the known table.
func (f Field) String() string {
	if int(f) < len(fieldTableV1) {
		return fieldTableV1[f].name
	}
	return "bit" + strconv.Itoa(int(f))
}
