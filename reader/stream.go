// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reader

import (
	"bytes"
	"errors"
	"fmt"

	"flowlog/store"
)

// Outcome is the result of one record decode attempt. Exactly one of
// Record and Err is set. Offset is the absolute offset of the record
// start (for errors detected inside a record, the precise failure
// position is on the wrapped store.Error).
type Outcome struct {
	Offset int64
	Record *store.FlowRecord
	Err    error
}

// Stats accumulates counters over the life of a stream.
type Stats struct {
	Records      int
	Errors       int
	Resyncs      int
	SkippedBytes int64
}

// Sentinel results of Stream.Next.
var (
	// ErrNeedMoreBytes suspends the stream: the buffered bytes do not
	// hold a full record yet and the source is still open.
	ErrNeedMoreBytes = errors.New("need more bytes")
	// ErrEndOfLog terminates the stream.
	ErrEndOfLog = errors.New("end of log")
)

// Stream is the incremental decoding state machine. Feed bytes in as
// they arrive, call Next until it suspends or terminates, call Close
// when the source will not produce anything more. A stream is not
// safe for concurrent use; use one stream per byte source.
type Stream struct {
	options store.DecodeOptions
	lenient bool

	buf         []byte
	offset      int64 // absolute offset of buf[0]
	closed      bool
	done        bool
	scanning    bool // lenient mode: looking for the next magic
	skipPending int  // bytes still to discard (unsupported version)

	stats Stats
}

// NewStream returns an empty stream.
func NewStream(config Configuration) *Stream {
	return &Stream{
		options: store.DecodeOptions{
			MaxRecordSize: config.MaxRecordSize,
			KnownVersions: config.KnownVersions,
		},
		lenient: config.RecoveryPolicy == RecoveryLenient,
	}
}

// Feed appends bytes to the stream. The slice is copied: the caller
// may reuse its buffer.
func (s *Stream) Feed(p []byte) {
	s.buf = append(s.buf, p...)
}

// Close signals that no more bytes will ever be fed. It does not
// terminate the stream by itself: buffered records are still
// returned by Next.
func (s *Stream) Close() {
	s.closed = true
}

// Stats returns the counters accumulated so far.
func (s *Stream) Stats() Stats {
	return s.stats
}

func (s *Stream) consume(n int) {
	s.buf = s.buf[n:]
	s.offset += int64(n)
}

func (s *Stream) skip(n int) {
	s.consume(n)
	s.stats.SkippedBytes += int64(n)
}

// Next returns the next decode outcome. It returns ErrNeedMoreBytes
// when a record is incomplete and more bytes may still arrive, and
// ErrEndOfLog once the stream is over. Errors local to one record are
// returned as outcomes, not as Next errors.
func (s *Stream) Next() (Outcome, error) {
	for {
		if s.done {
			return Outcome{}, ErrEndOfLog
		}
		if s.skipPending > 0 {
			n := min(s.skipPending, len(s.buf))
			s.skip(n)
			s.skipPending -= n
			if s.skipPending > 0 {
				if s.closed {
					s.done = true
					return Outcome{}, ErrEndOfLog
				}
				return Outcome{}, ErrNeedMoreBytes
			}
			continue
		}
		if s.scanning {
			if idx := bytes.Index(s.buf, store.Magic[:]); idx >= 0 {
				s.skip(idx)
				s.scanning = false
				s.stats.Resyncs++
				continue
			}
			if s.closed {
				s.skip(len(s.buf))
				s.done = true
				return Outcome{}, ErrEndOfLog
			}
			// Keep a partial magic at the end of the buffer, the
			// rest of the pattern may be in the next feed.
			s.skip(max(len(s.buf)-len(store.Magic)+1, 0))
			return Outcome{}, ErrNeedMoreBytes
		}

		// Awaiting header.
		if len(s.buf) == 0 {
			if s.closed {
				s.done = true
				return Outcome{}, ErrEndOfLog
			}
			return Outcome{}, ErrNeedMoreBytes
		}
		hdr, err := store.DecodeHeader(store.NewCursor(s.buf, s.offset), s.options)
		if err != nil {
			if errors.Is(err, store.ErrTruncated) {
				if !s.closed {
					return Outcome{}, ErrNeedMoreBytes
				}
				// The source ended mid-header: terminal.
				s.done = true
				s.stats.Errors++
				return Outcome{Offset: s.offset, Err: err}, nil
			}
			return s.structuralHeaderError(hdr, err), nil
		}

		// Awaiting body: wait for the whole declared record before
		// decoding, so a body decode error is never a false alarm
		// caused by buffering.
		if len(s.buf) < hdr.Length {
			if !s.closed {
				return Outcome{}, ErrNeedMoreBytes
			}
			s.done = true
			s.stats.Errors++
			return Outcome{
				Offset: s.offset,
				Err: &store.Error{
					Offset: s.offset + int64(len(s.buf)),
					Err:    store.ErrTruncated,
					Reason: fmt.Sprintf("source closed %d bytes into a %d-byte record", len(s.buf), hdr.Length),
				},
			}, nil
		}

		headerSize := store.HeaderSize(hdr.Version)
		body := s.buf[headerSize:hdr.Length]
		record, err := store.DecodeBody(store.NewCursor(body, s.offset+int64(headerSize)), hdr)
		start := s.offset
		if err != nil {
			s.stats.Errors++
			outcome := Outcome{Offset: start, Err: err}
			if store.IsStructural(err) {
				// Mask and length disagree: neither can be trusted
				// to find the next record.
				if s.lenient {
					s.skip(1)
					s.scanning = true
				} else {
					s.done = true
				}
			} else {
				// The record is bad but its framing is fine: skip it
				// and continue in both policies.
				s.skip(hdr.Length)
			}
			return outcome, nil
		}
		s.consume(hdr.Length)
		s.stats.Records++
		return Outcome{Offset: start, Record: record}, nil
	}
}

func (s *Stream) structuralHeaderError(hdr store.Header, err error) Outcome {
	s.stats.Errors++
	outcome := Outcome{Offset: s.offset, Err: err}
	if !s.lenient {
		s.done = true
		return outcome
	}
	if errors.Is(err, store.ErrUnsupportedVersion) {
		// The declared length was sanity-checked: skip the record
		// instead of scanning through it.
		s.skipPending = hdr.Length
		return outcome
	}
	s.skip(1)
	s.scanning = true
	return outcome
}
