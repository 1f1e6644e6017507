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
// Package testutil provides testing utilities for kiln packages.
package testutil

import (
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/internal/mapfs"
)

// Root is the directory in-memory projects live under.
const Root = "/work"

// Path returns the absolute in-memory path of a project-relative name.
func Path(name string) string {
	return filepath.Join(Root, filepath.FromSlash(name))
}

// NewProjectFS writes files (project-relative name -> content) into a new
// in-memory filesystem under Root.
func NewProjectFS(t *testing.T, files map[string]string) *mapfs.MapFileSystem {
	t.Helper()
	mfs := mapfs.New()
	for _, name := range slices.Sorted(maps.Keys(files)) {
		mfs.AddFile(Path(name), files[name], 0644)
	}
	return mfs
}

// LoadProject loads the kiln.yaml at Root of fsys.
func LoadProject(t *testing.T, fsys *mapfs.MapFileSystem) *artifact.Project {
	t.Helper()
	project, err := config.Load(fsys, Path(config.DefaultFile))
	if err != nil {
		t.Fatalf("Failed to load project: %v", err)
	}
	return project
}

// NewProject writes files, including a kiln.yaml, and loads the project.
func NewProject(t *testing.T, files map[string]string) (*mapfs.MapFileSystem, *artifact.Project) {
	t.Helper()
	mfs := NewProjectFS(t, files)
	return mfs, LoadProject(t, mfs)
}

// NewFixtureFS loads fixture files from testdata and returns a MapFileSystem
// with files mapped to the specified root path.
// The fixtureDir should be relative to the testdata directory.
func NewFixtureFS(t *testing.T, fixtureDir string, rootPath string) *mapfs.MapFileSystem {
	t.Helper()

	mfs := mapfs.New()

	// Try multiple possible paths since Go test changes working directory
	// based on which package is being tested.
	fixturePath := findTestdata(fixtureDir)
	if fixturePath == "" {
		t.Fatalf("Could not find fixtures at %s (tried all paths)", fixtureDir)
	}

	// Walk fixture directory and load all files into memory
	err := filepath.WalkDir(fixturePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fixturePath, path)
		if err != nil {
			return err
		}

		mfs.AddFile(filepath.Join(rootPath, relPath), string(content), 0644)
		return nil
	})

	if err != nil {
		t.Fatalf("Failed to load fixtures from %s: %v", fixtureDir, err)
	}

	return mfs
}

func findTestdata(name string) string {
	possiblePaths := []string{
		filepath.Join("testdata", name),
		filepath.Join("..", "testdata", name),
		filepath.Join("..", "..", "testdata", name),
	}
	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
