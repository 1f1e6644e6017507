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

// Package build provides the build command for kiln.
package build

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/internal/workspace"
)

// Cmd is the build cobra command that brings artifacts up to date.
var Cmd = &cobra.Command{
	Use:   "build [artifact...]",
	Short: "Incrementally build artifacts",
	Long: `Bring artifacts up to date after source changes.

Only sources that changed or were deleted since the last build are
processed, together with every other source feeding the same outputs.
Artifacts included by the named ones are built first.`,
	Example: `  # Build every artifact in kiln.yaml
  kiln build

  # Build one artifact and what it includes
  kiln build web

  # Keep going past misconfigured artifacts, report as JSON
  kiln build --isolate --format json`,
	PreRunE: bindFlags,
	RunE:    run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Report format (text, json)")
	Cmd.Flags().IntP("jobs", "j", 0, "Archives rewritten in parallel (default: number of CPUs)")
	Cmd.Flags().Bool("isolate", false, "Keep building independent artifacts after a configuration error")
}

// build and watch share flag names, so flags are bound into viper only for
// the command that runs.
func bindFlags(cmd *cobra.Command, args []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func run(cmd *cobra.Command, args []string) error {
	format := viper.GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}

	ws, err := workspace.Open(workspace.FromViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, buildErr := ws.Engine.Build(ctx, args)
	if err := output.Report(ws.FS, report, format); err != nil {
		return err
	}
	return buildErr
}
