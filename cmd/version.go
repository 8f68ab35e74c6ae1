// SPDX-FileCopyrightText: 2025 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"runtime"
	runtimedebug "runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"flowlog/common/reporter"
	"flowlog/store"
)

// Version contains the current version. It is overridden during the build
// process.
var Version = "dev"

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Long:  `Display version and build information about flowlog.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("flowlog %s\n", Version)
		cmd.Printf("  Built with: %s\n", runtime.Version())
		if info, ok := runtimedebug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if strings.HasPrefix(setting.Key, "GO") {
					cmd.Printf("  Build setting %s=%s\n", setting.Key, setting.Value)
				}
			}
		}
		cmd.Println()
		cmd.Println("Supported log format versions:")
		for _, version := range store.SupportedVersions {
			cmd.Printf("- %d (%d fields)\n", version, store.KnownFields(version).Bits().Count())
		}
	},
}

func versionMetrics(r *reporter.Reporter) {
	r.GaugeVec(reporter.GaugeOpts{
		Name: "info",
		Help: "Flowlog build information",
	}, []string{"version", "compiler"}).
		WithLabelValues(Version, runtime.Version()).Set(1)
}
