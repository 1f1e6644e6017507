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

// Package version provides the version command for kiln.
package version

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/internal/version"
)

// Cmd is the version command.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the kiln version with the commit, build time and Go toolchain
it was built from.`,
	Example: `  kiln version
  kiln version --short
  kiln version --format json`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
	Cmd.Flags().Bool("short", false, "Print only the version number")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	short, err := cmd.Flags().GetBool("short")
	if err != nil {
		return fmt.Errorf("error reading short flag: %w", err)
	}

	info := version.Get()
	osfs := fs.NewOSFileSystem()
	if short {
		return output.Write(osfs, info.Version)
	}

	var text string
	switch format {
	case "text":
		text = "kiln " + info.String()
		if info.GoVersion != "" {
			text += "\n" + info.GoVersion
		}
	case "json":
		out, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling version info: %w", err)
		}
		text = string(out)
	case "yaml":
		out, err := yaml.Marshal(info)
		if err != nil {
			return fmt.Errorf("error marshaling version info: %w", err)
		}
		text = string(out)
	default:
		return fmt.Errorf("invalid format %q: must be 'text', 'json' or 'yaml'", format)
	}
	return output.Write(osfs, text)
}
