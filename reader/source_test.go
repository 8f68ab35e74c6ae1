// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"flowlog/common/daemon"
	"flowlog/common/reporter"
)

func TestTailReader(t *testing.T) {
	r := reporter.NewMock(t)
	path := filepath.Join(t.TempDir(), "flows.log")
	record1 := simpleRecord(6, 443)
	record2 := simpleRecord(17, 53)
	if err := os.WriteFile(path, record1, 0o644); err != nil {
		t.Fatalf("WriteFile() error:\n%+v", err)
	}

	source, err := NewTailReader(path, clock.New())
	if err != nil {
		t.Fatalf("NewTailReader() error:\n%+v", err)
	}
	c, err := New(r, DefaultConfiguration(), daemon.NewMock(t), source)
	if err != nil {
		t.Fatalf("New() error:\n%+v", err)
	}
	ch, err := c.Start()
	if err != nil {
		t.Fatalf("Start() error:\n%+v", err)
	}
	t.Cleanup(func() {
		if err := c.Stop(); err != nil {
			t.Errorf("Stop() error:\n%+v", err)
		}
	})

	timeout := time.After(5 * time.Second)
	expectRecord := func(proto uint8) {
		t.Helper()
		select {
		case outcome := <-ch:
			if outcome.Err != nil {
				t.Fatalf("unexpected outcome error:\n%+v", outcome.Err)
			}
			if outcome.Record.Proto != proto {
				t.Fatalf("record proto got %d, want %d", outcome.Record.Proto, proto)
			}
		case <-timeout:
			t.Fatal("timeout waiting for a record")
		}
	}
	expectRecord(6)

	// Append a second record to the file being tailed.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile() error:\n%+v", err)
	}
	if _, err := f.Write(record2); err != nil {
		t.Fatalf("Write() error:\n%+v", err)
	}
	f.Close()
	expectRecord(17)
}

func TestTailReaderClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile() error:\n%+v", err)
	}
	source, err := NewTailReader(path, clock.New())
	if err != nil {
		t.Fatalf("NewTailReader() error:\n%+v", err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := source.Read(make([]byte, 16))
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	if err := source.Close(); err != nil {
		t.Fatalf("Close() error:\n%+v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Fatalf("Read() after Close got %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read() still blocked after Close()")
	}
}
