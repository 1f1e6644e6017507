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

// Package config loads a kiln project file into the artifact model.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/viper"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/fs"
)

// DefaultFile is the project file looked up when none is given.
const DefaultFile = "kiln.yaml"

// File is the decoded project file.
type File struct {
	Artifacts []Artifact `mapstructure:"artifacts"`
}

// Artifact is one artifact entry of the project file.
type Artifact struct {
	Name        string   `mapstructure:"name"`
	Output      string   `mapstructure:"output"`
	Includes    []string `mapstructure:"includes"`
	Compression string   `mapstructure:"compression"`
	Roots       []Root   `mapstructure:"roots"`
}

// Root declares one source root and where its files go.
type Root struct {
	Source  string `mapstructure:"source"`
	Pattern string `mapstructure:"pattern"`
	To      To     `mapstructure:"to"`
}

// To is a root destination. With Archive set, Dir is the directory inside
// the archive; otherwise Dir is relative to the artifact output.
type To struct {
	Dir     string `mapstructure:"dir"`
	Archive string `mapstructure:"archive"`
}

// Load reads the project file at path and resolves it. Relative paths in
// the file resolve against the file's directory.
func Load(fsys fs.FileSystem, path string) (*artifact.Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid project path: %w", err)
	}
	data, err := fsys.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", abs, err)
	}
	return file.Resolve(filepath.Dir(abs))
}

// Parse decodes project file YAML.
func Parse(data []byte) (*File, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Resolve builds the artifact model, with relative paths anchored at dir.
// Root indices follow declaration order within each artifact.
func (f *File) Resolve(dir string) (*artifact.Project, error) {
	project := &artifact.Project{Dir: dir}
	names := make(map[string]bool)
	var errs []error

	for i, ac := range f.Artifacts {
		if ac.Name == "" {
			errs = append(errs, fmt.Errorf("artifact #%d: name is required", i))
			continue
		}
		if names[ac.Name] {
			errs = append(errs, fmt.Errorf("artifact %q: declared twice", ac.Name))
			continue
		}
		names[ac.Name] = true

		a, err := ac.resolve(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("artifact %q: %w", ac.Name, err))
			continue
		}
		project.Artifacts = append(project.Artifacts, a)
	}

	for _, a := range project.Artifacts {
		for _, inc := range a.Includes {
			if !names[inc] {
				errs = append(errs, fmt.Errorf("artifact %q: includes unknown artifact %q", a.Name, inc))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return project, nil
}

func (ac Artifact) resolve(dir string) (*artifact.Artifact, error) {
	compression, err := artifact.ParseCompression(ac.Compression)
	if err != nil {
		return nil, err
	}
	a := &artifact.Artifact{
		Name:     ac.Name,
		Includes: ac.Includes,
	}
	// An artifact without an output path still loads; building it fails.
	if ac.Output != "" {
		a.OutputPath = anchor(dir, ac.Output)
	}

	archives := make(map[string]*artifact.ArchiveInfo)
	for i, rc := range ac.Roots {
		if rc.Source == "" {
			return nil, fmt.Errorf("root #%d: source is required", i)
		}
		if err := artifact.ValidatePattern(rc.Pattern); err != nil {
			return nil, fmt.Errorf("root #%d: pattern %q: %w", i, rc.Pattern, err)
		}
		root := &artifact.RootDescriptor{
			Index:    i,
			Artifact: ac.Name,
			Source:   anchor(dir, rc.Source),
			Pattern:  rc.Pattern,
		}
		if rc.To.Archive != "" {
			archivePath := filepath.Join(a.OutputPath, filepath.FromSlash(rc.To.Archive))
			info, ok := archives[archivePath]
			if !ok {
				info = &artifact.ArchiveInfo{Path: archivePath, Compression: compression}
				archives[archivePath] = info
			}
			root.Destination = artifact.Destination{
				Kind:    artifact.ArchiveEntry,
				Dir:     path.Clean("/" + filepath.ToSlash(rc.To.Dir))[1:],
				Archive: info,
			}
		} else {
			root.Destination = artifact.Destination{
				Kind: artifact.Exploded,
				Dir:  filepath.Join(a.OutputPath, filepath.FromSlash(rc.To.Dir)),
			}
		}
		a.Roots = append(a.Roots, root)
	}
	return a, nil
}

func anchor(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
