// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
)

// TailReader reads a log file and, instead of reporting io.EOF when
// reaching its end, waits for more bytes to be appended. It relies on
// file system notifications with a polling fallback whose interval
// backs off while the file stays quiet. Read returns io.EOF only
// after Close.
type TailReader struct {
	file    *os.File
	watcher *fsnotify.Watcher
	clock   clock.Clock
	poll    *backoff.ExponentialBackOff

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTailReader opens the provided file for tailing. The clock is
// used for the polling fallback; pass clock.New() outside tests.
func NewTailReader(path string, clk clock.Clock) (*TailReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("cannot setup watcher: %w", err)
	}
	// Watch the directory: the file may be recreated by rotation and
	// some editors replace instead of appending.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		file.Close()
		return nil, fmt.Errorf("cannot watch %q: %w", filepath.Dir(path), err)
	}
	poll := backoff.NewExponentialBackOff()
	poll.InitialInterval = 100 * time.Millisecond
	poll.MaxInterval = 5 * time.Second
	poll.MaxElapsedTime = 0
	return &TailReader{
		file:    file,
		watcher: watcher,
		clock:   clk,
		poll:    poll,
		closed:  make(chan struct{}),
	}, nil
}

// Read reads the next bytes from the file. At the end of the file, it
// blocks until more bytes are appended or the reader is closed.
func (tr *TailReader) Read(p []byte) (int, error) {
	for {
		n, err := tr.file.Read(p)
		if n > 0 {
			tr.poll.Reset()
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			if errors.Is(err, os.ErrClosed) {
				// Closed while a read was pending.
				return 0, io.EOF
			}
			return 0, err
		}
		select {
		case <-tr.closed:
			return 0, io.EOF
		default:
		}
		timer := tr.clock.Timer(tr.poll.NextBackOff())
		select {
		case <-tr.closed:
			timer.Stop()
			return 0, io.EOF
		case event := <-tr.watcher.Events:
			timer.Stop()
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				tr.poll.Reset()
			}
		case <-tr.watcher.Errors:
			// Notifications are best effort, the poll timer
			// still makes progress.
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Close unblocks pending reads and releases the file and the watcher.
func (tr *TailReader) Close() error {
	var err error
	tr.closeOnce.Do(func() {
		close(tr.closed)
		tr.watcher.Close()
		err = tr.file.Close()
	})
	return err
}
