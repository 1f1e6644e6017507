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

// Package clean provides the clean command for kiln.
package clean

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/internal/workspace"
)

// Cmd is the clean cobra command.
var Cmd = &cobra.Command{
	Use:   "clean [artifact...]",
	Short: "Delete built outputs and build state",
	Long: `Delete every output recorded for the named artifacts (all artifacts when
none are named) together with their persisted build state. The next build
packages them from scratch.`,
	RunE: run,
}

func run(cmd *cobra.Command, args []string) error {
	ws, err := workspace.Open(workspace.FromViper())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, cleanErr := ws.Engine.Clean(ctx, args)
	if err := output.Report(ws.FS, report, "text"); err != nil {
		return err
	}
	return cleanErr
}
