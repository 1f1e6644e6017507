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

// Package output provides shared output utilities for kiln CLI commands.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"bennypowers.dev/kiln/build"
	"bennypowers.dev/kiln/fs"
)

// Write prints text to stdout, or to the file named by viper's "output"
// flag when it is set.
func Write(osfs fs.FileSystem, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		return osfs.WriteFile(outputPath, []byte(text), 0644)
	}
	fmt.Print(text)
	return nil
}

// Report formats a build report as text or json and writes it.
func Report(osfs fs.FileSystem, report *build.Report, format string) error {
	if report == nil {
		return nil
	}
	switch format {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		return Write(osfs, string(out))
	case "text", "":
		if len(report.Artifacts) == 0 {
			return Write(osfs, "no artifacts")
		}
		return Write(osfs, report.String())
	default:
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", format)
	}
}
