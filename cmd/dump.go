// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"flowlog/common/daemon"
	"flowlog/common/reporter"
	"flowlog/reader"
)

// DumpConfiguration represents the configuration file for the dump command.
type DumpConfiguration struct {
	Reporting reporter.Configuration
	Reader    reader.Configuration
}

// Reset resets the configuration for the dump command to its default value.
func (c *DumpConfiguration) Reset() {
	*c = DumpConfiguration{
		Reporting: reporter.DefaultConfiguration(),
		Reader:    reader.DefaultConfiguration(),
	}
}

type dumpOptions struct {
	ConfigRelatedOptions
	Follow        bool
	Lenient       bool
	MetricsListen string
}

// DumpOptions stores the command-line option values for the dump
// command.
var DumpOptions dumpOptions

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] file...",
	Short: "Decode flow log files",
	Long: `Decode the given flow log files and print one line per flow record.
Decode errors are logged and counted without interrupting the other files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := DumpConfiguration{}
		config.Reset()
		if err := DumpOptions.Parse(cmd.OutOrStdout(), "dump", &config); err != nil {
			return err
		}
		if DumpOptions.Lenient {
			config.Reader.RecoveryPolicy = reader.RecoveryLenient
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return dumpStart(r, config, DumpOptions, args, cmd.OutOrStdout())
	},
}

func init() {
	RootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVarP(&DumpOptions.ConfigRelatedOptions.Path, "config", "c", "",
		"Configuration file")
	dumpCmd.Flags().BoolVarP(&DumpOptions.ConfigRelatedOptions.Dump, "dump", "D", false,
		"Dump configuration before starting")
	dumpCmd.Flags().BoolVarP(&DumpOptions.Follow, "follow", "f", false,
		"Keep reading as the files grow")
	dumpCmd.Flags().BoolVarP(&DumpOptions.Lenient, "lenient", "l", false,
		"Resynchronize after a structural error instead of stopping")
	dumpCmd.Flags().StringVar(&DumpOptions.MetricsListen, "metrics", "",
		"Expose metrics and healthchecks over HTTP on this address")
}

func dumpStart(r *reporter.Reporter, config DumpConfiguration, options dumpOptions, paths []string, out io.Writer) error {
	daemonComponent, err := daemon.New(r)
	if err != nil {
		return fmt.Errorf("unable to initialize daemon component: %w", err)
	}
	if err := daemonComponent.Start(); err != nil {
		return fmt.Errorf("unable to start daemon component: %w", err)
	}
	defer daemonComponent.Stop()
	versionMetrics(r)

	if options.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/api/v0/metrics", r.MetricsHTTPHandler())
		mux.Handle("/api/v0/healthcheck", r.HealthcheckHTTPHandler())
		server := &http.Server{Addr: options.MetricsListen, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.Err(err).Msg("unable to serve metrics")
			}
		}()
		defer server.Shutdown(context.Background())
	}

	total := reader.Stats{}
	for _, path := range paths {
		stats, err := dumpFile(r, config.Reader, daemonComponent, path, options.Follow, out)
		if err != nil {
			return err
		}
		total.Records += stats.Records
		total.Errors += stats.Errors
		total.Resyncs += stats.Resyncs
		total.SkippedBytes += stats.SkippedBytes
		select {
		case <-daemonComponent.Terminated():
			return nil
		default:
		}
	}
	r.Info().
		Int("records", total.Records).
		Int("errors", total.Errors).
		Int("resyncs", total.Resyncs).
		Int64("skipped-bytes", total.SkippedBytes).
		Msg("all files decoded")
	return nil
}

// dumpFile decodes one file and prints its records. It returns the
// decoding counters of the file.
func dumpFile(r *reporter.Reporter, config reader.Configuration, daemonComponent daemon.Component, path string, follow bool, out io.Writer) (reader.Stats, error) {
	var source io.ReadCloser
	var err error
	if follow {
		source, err = reader.NewTailReader(path, clock.New())
	} else {
		source, err = os.Open(path)
	}
	if err != nil {
		return reader.Stats{}, fmt.Errorf("unable to open %s: %w", path, err)
	}

	readerComponent, err := reader.New(r, config, daemonComponent, source)
	if err != nil {
		source.Close()
		return reader.Stats{}, fmt.Errorf("unable to initialize reader component: %w", err)
	}
	outcomes, err := readerComponent.Start()
	if err != nil {
		return reader.Stats{}, fmt.Errorf("unable to start reader component: %w", err)
	}
	defer readerComponent.Stop()

	for {
		select {
		case <-daemonComponent.Terminated():
			return readerComponent.Stats(), nil
		case outcome, ok := <-outcomes:
			if !ok {
				return readerComponent.Stats(), nil
			}
			if outcome.Err != nil {
				// Already logged and counted by the reader.
				continue
			}
			fmt.Fprintln(out, outcome.Record)
		}
	}
}
