// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package reader turns a sequential byte source into a lazy sequence
// of decoded flow records. The decoding itself is in the store
// package; this component adds incremental consumption, the recovery
// policy and observability.
package reader

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"gopkg.in/tomb.v2"

	"flowlog/common/daemon"
	"flowlog/common/helpers"
	"flowlog/common/reporter"
	"flowlog/store"
)

// Component represents the reader component. One component reads one
// byte source; several components can run concurrently, they share
// nothing.
type Component struct {
	r         *reporter.Reporter
	t         tomb.Tomb
	config    Configuration
	errLogger reporter.Logger

	source    io.ReadCloser
	stream    *Stream
	ch        chan Outcome
	closeOnce sync.Once

	// Last stream statistics pushed to the counters.
	lastResyncs int
	lastSkipped int64

	metrics struct {
		bytes        reporter.Counter
		records      reporter.Counter
		errors       *reporter.CounterVec
		unrecognized reporter.Counter
		resyncs      reporter.Counter
		skippedBytes reporter.Counter
	}
}

// New creates a new reader component consuming the provided source.
// The source's Read should block until bytes are available and return
// io.EOF only when no more bytes will ever come.
func New(r *reporter.Reporter, configuration Configuration, d daemon.Component, source io.ReadCloser) (*Component, error) {
	if err := helpers.Validate.Struct(configuration); err != nil {
		return nil, err
	}
	c := Component{
		r:         r,
		config:    configuration,
		errLogger: r.Sample(reporter.BurstSampler(10*time.Second, 3)),
		source:    source,
		stream:    NewStream(configuration),
		ch:        make(chan Outcome),
	}
	c.metrics.bytes = r.Counter(
		reporter.CounterOpts{
			Name: "bytes_total",
			Help: "Number of bytes read from the source.",
		})
	c.metrics.records = r.Counter(
		reporter.CounterOpts{
			Name: "records_total",
			Help: "Number of flow records decoded.",
		})
	c.metrics.errors = r.CounterVec(
		reporter.CounterOpts{
			Name: "errors_total",
			Help: "Number of decode errors.",
		},
		[]string{"error"},
	)
	c.metrics.unrecognized = r.Counter(
		reporter.CounterOpts{
			Name: "unrecognized_fields_total",
			Help: "Number of records carrying fields unknown to this decoder.",
		})
	c.metrics.resyncs = r.Counter(
		reporter.CounterOpts{
			Name: "resynchronizations_total",
			Help: "Number of times the reader scanned for a new record boundary.",
		})
	c.metrics.skippedBytes = r.Counter(
		reporter.CounterOpts{
			Name: "skipped_bytes_total",
			Help: "Number of bytes discarded without being decoded.",
		})
	d.Track(&c.t, "reader")
	r.RegisterHealthcheck("reader", c.healthcheck)
	return &c, nil
}

// Start starts the reader and returns the outcome channel. The
// channel is closed once the source is exhausted or, in strict mode,
// after the first structural error.
func (c *Component) Start() (<-chan Outcome, error) {
	c.r.Info().Msg("starting reader")
	c.t.Go(c.run)
	return c.ch, nil
}

// Stop stops the reader. Pending outcomes are discarded.
func (c *Component) Stop() error {
	defer c.r.Info().Msg("reader stopped")
	c.t.Kill(nil)
	c.source.Close()
	return c.t.Wait()
}

// Stats returns the decoding counters accumulated so far. It should
// be called once the outcome channel is closed.
func (c *Component) Stats() Stats {
	return c.stream.Stats()
}

func (c *Component) healthcheck(_ context.Context) reporter.HealthcheckResult {
	if c.t.Alive() {
		return reporter.HealthcheckResult{Status: reporter.HealthcheckOK, Reason: "reading"}
	}
	return reporter.HealthcheckResult{Status: reporter.HealthcheckWarning, Reason: "stopped"}
}

func (c *Component) run() error {
	defer c.closeOnce.Do(func() { close(c.ch) })
	buf := make([]byte, 32*1024)
	for {
		// Drain every outcome the buffered bytes allow.
		for {
			outcome, err := c.stream.Next()
			if errors.Is(err, ErrNeedMoreBytes) {
				break
			}
			if errors.Is(err, ErrEndOfLog) {
				c.syncStats()
				stats := c.stream.Stats()
				c.r.Debug().
					Int("records", stats.Records).
					Int("errors", stats.Errors).
					Int("resyncs", stats.Resyncs).
					Int64("skipped-bytes", stats.SkippedBytes).
					Msg("end of log")
				return nil
			}
			c.account(outcome)
			select {
			case <-c.t.Dying():
				return nil
			case c.ch <- outcome:
			}
		}
		n, err := c.source.Read(buf)
		if n > 0 {
			c.metrics.bytes.Add(float64(n))
			c.stream.Feed(buf[:n])
		}
		if err == io.EOF {
			c.stream.Close()
			continue
		}
		if err != nil {
			if !c.t.Alive() {
				// Unblocked by Stop() closing the source.
				return nil
			}
			c.r.Err(err).Msg("cannot read from source")
			return err
		}
	}
}

func (c *Component) account(outcome Outcome) {
	if outcome.Err != nil {
		c.metrics.errors.WithLabelValues(errorLabel(outcome.Err)).Inc()
		c.errLogger.Err(outcome.Err).
			Int64("offset", outcome.Offset).
			Msg("cannot decode record")
		return
	}
	c.metrics.records.Inc()
	if outcome.Record.HasUnrecognized() {
		c.metrics.unrecognized.Inc()
		c.errLogger.Warn().
			Int64("offset", outcome.Offset).
			Stringer("fields", outcome.Record.UnknownFields).
			Int("trailing-bytes", outcome.Record.TrailingBytes).
			Msg("record carries unrecognized fields")
	}
	c.syncStats()
}

// syncStats pushes the stream counters that move between outcomes
// (resynchronizations, skipped bytes) to the Prometheus counters.
func (c *Component) syncStats() {
	stats := c.stream.Stats()
	if delta := stats.Resyncs - c.lastResyncs; delta > 0 {
		c.metrics.resyncs.Add(float64(delta))
		c.lastResyncs = stats.Resyncs
	}
	if delta := stats.SkippedBytes - c.lastSkipped; delta > 0 {
		c.metrics.skippedBytes.Add(float64(delta))
		c.lastSkipped = stats.SkippedBytes
	}
}

// errorLabel maps a decode error to a low-cardinality metric label.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, store.ErrBadMagic):
		return "bad-magic"
	case errors.Is(err, store.ErrUnsupportedVersion):
		return "unsupported-version"
	case errors.Is(err, store.ErrBadLength):
		return "bad-length"
	case errors.Is(err, store.ErrFieldOverrun):
		return "field-overrun"
	case errors.Is(err, store.ErrUnknownAddressFamily):
		return "unknown-address-family"
	case errors.Is(err, store.ErrTruncated):
		return "truncated"
	case errors.Is(err, store.ErrMalformed):
		return "malformed"
	}
	return "other"
}
