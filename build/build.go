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

// Package build brings packaged artifacts up to date after source changes.
//
// For each artifact, the engine turns the changed and deleted sources
// reported by the dirty-state tracker into the set of outputs that must be
// removed and the set of sources that must be replayed through the layout,
// using the artifact's mapping store to find every other source that feeds
// an affected output. Exploded outputs are copied directly; archives are
// rewritten whole by the archive writer.
package build

import (
	"context"
	"net/url"
	"path/filepath"

	"bennypowers.dev/kiln/archive"
	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/mapping"
	"bennypowers.dev/kiln/message"
)

// DefaultStateDir is where build state lives, relative to the project.
const DefaultStateDir = ".kiln"

// Sorter provides the order artifacts are built in and the artifacts that
// cannot be built because their layout includes itself.
type Sorter interface {
	Included(name string) []string
	WithIncluded(artifacts []*artifact.Artifact) map[string]bool
	SortedByInclusion() []*artifact.Artifact
	SelfIncluding() map[string]*artifact.Artifact
}

// Tracker is the dirty-state tracker: which sources of each artifact
// changed or disappeared since it was last up to date.
type Tracker interface {
	EnsureInitialized(a *artifact.Artifact, stampsPath string) error
	GetAndClearDeletedPaths(target string) []string
	SourcesToRecompile(target string) map[int][]string
	MarkDirty(target string, root int, path string) error
	RegisterDeleted(target string, path string)
	MarkUpToDate(target string)
	Clear(target string)
	Save(target, path string) error
}

// ArchiveWriter rewrites changed archives completely and records their
// contributors in the store.
type ArchiveWriter interface {
	Write(ctx context.Context, a *artifact.Artifact, archives []*artifact.ArchiveInfo, store *mapping.Store) error
}

// Options tune an Engine.
type Options struct {
	// StateDir holds the persisted mapping and fs state. Defaults to
	// DefaultStateDir under the project directory.
	StateDir string

	// Jobs bounds parallel archive rewrites. Zero uses every CPU.
	Jobs int

	// IsolateFailures keeps building independent artifacts after a
	// self-inclusion or missing output path error, instead of stopping the
	// whole sequence.
	IsolateFailures bool
}

// Engine builds the artifacts of one project.
type Engine struct {
	fsys    fs.FileSystem
	project *artifact.Project
	tracker Tracker
	sink    message.Sink
	sorter  Sorter
	writer  ArchiveWriter
	opts    Options
}

// New creates an engine using the project's inclusion sorter and a zip
// archive writer.
func New(fsys fs.FileSystem, project *artifact.Project, tracker Tracker, sink message.Sink, opts Options) *Engine {
	if opts.StateDir == "" {
		opts.StateDir = filepath.Join(project.Dir, DefaultStateDir)
	}
	return &Engine{
		fsys:    fsys,
		project: project,
		tracker: tracker,
		sink:    sink,
		sorter:  artifact.NewSorter(project),
		writer:  archive.NewWriter(fsys, opts.Jobs),
		opts:    opts,
	}
}

// WithSorter returns a copy of the engine ordering artifacts with s.
func (e *Engine) WithSorter(s Sorter) *Engine {
	clone := *e
	clone.sorter = s
	return &clone
}

// WithArchiveWriter returns a copy of the engine rewriting archives with w.
func (e *Engine) WithArchiveWriter(w ArchiveWriter) *Engine {
	clone := *e
	clone.writer = w
	return &clone
}

// MappingPath returns where the mapping store of an artifact is persisted.
func (e *Engine) MappingPath(name string) string {
	return filepath.Join(e.targetDir(name), "mapping.cbor")
}

// StampsPath returns where the fs state of an artifact is persisted.
func (e *Engine) StampsPath(name string) string {
	return filepath.Join(e.targetDir(name), "stamps.cbor")
}

func (e *Engine) targetDir(name string) string {
	return filepath.Join(e.opts.StateDir, url.PathEscape(name))
}

// LoadMapping reads the persisted mapping store of an artifact.
func (e *Engine) LoadMapping(name string) (*mapping.Store, error) {
	return mapping.Load(e.fsys, e.MappingPath(name))
}
