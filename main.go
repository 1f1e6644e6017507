/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Command kiln incrementally packages build outputs into artifacts.
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	kiln "bennypowers.dev/kiln/build"
	"bennypowers.dev/kiln/cmd/build"
	"bennypowers.dev/kiln/cmd/clean"
	"bennypowers.dev/kiln/cmd/layout"
	"bennypowers.dev/kiln/cmd/version"
	"bennypowers.dev/kiln/cmd/watch"
)

var (
	cpuprofile string
	profile    *os.File
	rootCmd    = &cobra.Command{
		Use:   "kiln",
		Short: "Incrementally package files and archives into artifacts",
		Long: `kiln packages source files into artifacts: exploded directories and
zip archives described by a kiln.yaml project file. Builds are incremental:
only outputs affected by changed or deleted sources are touched.`,
		SilenceUsage:       true,
		PersistentPreRunE:  func(*cobra.Command, []string) error { return startProfile() },
		PersistentPostRunE: func(*cobra.Command, []string) error { return stopProfile() },
	}
)

func startProfile() error {
	if cpuprofile == "" {
		return nil
	}
	f, err := os.Create(cpuprofile)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return errors.Join(fmt.Errorf("could not start CPU profile: %w", err), f.Close())
	}
	profile = f
	return nil
}

func stopProfile() error {
	if profile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	f := profile
	profile = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing CPU profile: %w", err)
	}
	return nil
}

func init() {
	// Root flags (persistent across all commands)
	rootCmd.PersistentFlags().StringP("project", "p", "kiln.yaml", "Project file")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Report file (default: stdout)")
	rootCmd.PersistentFlags().String("state-dir", "", "Build state directory (default: .kiln next to the project file)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("state-dir", rootCmd.PersistentFlags().Lookup("state-dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// KILN_PROJECT, KILN_STATE_DIR, ...
	viper.SetEnvPrefix("kiln")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Add commands
	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(watch.Cmd)
	rootCmd.AddCommand(layout.Cmd)
	rootCmd.AddCommand(clean.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, kiln.ErrCanceled):
		// A failed build never reaches PersistentPostRunE.
		_ = stopProfile()
		os.Exit(130)
	default:
		_ = stopProfile()
		os.Exit(1)
	}
}
