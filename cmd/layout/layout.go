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

// Package layout provides the layout command for kiln.
package layout

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/internal/workspace"
)

// Cmd is the layout cobra command.
var Cmd = &cobra.Command{
	Use:   "layout [artifact...]",
	Short: "Print the resolved artifact layout",
	Long: `Print each artifact with its resolved roots: root index, source,
pattern and destination, in build order.`,
	Example: `  kiln layout
  kiln layout web --format json`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "yaml", "Output format (yaml, json)")
}

// Artifact is the printed form of one artifact.
type Artifact struct {
	Name     string   `yaml:"name" json:"name"`
	Output   string   `yaml:"output" json:"output"`
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Roots    []Root   `yaml:"roots" json:"roots"`
}

// Root is the printed form of one root descriptor.
type Root struct {
	Index       int    `yaml:"index" json:"index"`
	Source      string `yaml:"source" json:"source"`
	Pattern     string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Kind        string `yaml:"kind" json:"kind"`
	Destination string `yaml:"destination" json:"destination"`
	Entry       string `yaml:"entry,omitempty" json:"entry,omitempty"`
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty"`
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	ws, err := workspace.Open(workspace.FromViper())
	if err != nil {
		return err
	}
	selected, err := ws.Project.Select(args)
	if err != nil {
		return err
	}
	sorter := artifact.NewSorter(ws.Project)
	wanted := sorter.WithIncluded(selected)

	var layout []Artifact
	for _, a := range sorter.SortedByInclusion() {
		if wanted[a.Name] {
			layout = append(layout, Describe(a))
		}
	}

	switch format {
	case "yaml":
		out, err := yaml.Marshal(layout)
		if err != nil {
			return fmt.Errorf("error marshaling layout: %w", err)
		}
		return output.Write(ws.FS, string(out))
	case "json":
		out, err := json.MarshalIndent(layout, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling layout: %w", err)
		}
		return output.Write(ws.FS, string(out))
	default:
		return fmt.Errorf("invalid format %q: must be 'yaml' or 'json'", format)
	}
}

// Describe converts an artifact to its printed form.
func Describe(a *artifact.Artifact) Artifact {
	out := Artifact{Name: a.Name, Output: a.OutputPath, Includes: a.Includes}
	for _, r := range a.Roots {
		root := Root{
			Index:   r.Index,
			Source:  r.Source,
			Pattern: r.Pattern,
			Kind:    r.Destination.Kind.String(),
		}
		switch r.Destination.Kind {
		case artifact.ArchiveEntry:
			root.Destination = r.Destination.Archive.Path
			root.Entry = r.Destination.Dir
			root.Compression = string(r.Destination.Archive.Compression)
		default:
			root.Destination = r.Destination.Dir
		}
		out.Roots = append(out.Roots, root)
	}
	return out
}
