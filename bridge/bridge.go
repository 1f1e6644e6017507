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

// Package bridge turns file events reported by other build steps into
// dirty-state markings for the artifacts whose roots cover those files.
//
// Events may arrive from any goroutine. They are queued and only applied
// when Drain is called at the start of the next build cycle, so a build in
// progress never sees its dirty state change underneath it.
package bridge

import (
	"log/slog"
	"path/filepath"
	"sync"

	"bennypowers.dev/kiln/artifact"
)

// Tracker is the part of the dirty-state tracker the bridge writes to.
type Tracker interface {
	MarkDirty(target string, root int, path string) error
	RegisterDeleted(target string, path string)
}

// Generated names a file produced by another build step: its output root
// and its path relative to that root.
type Generated struct {
	Root     string
	Relative string
}

// Path joins the root and relative path.
func (g Generated) Path() string {
	return filepath.Join(g.Root, filepath.FromSlash(g.Relative))
}

type eventKind int

const (
	generated eventKind = iota
	deleted
)

type event struct {
	kind  eventKind
	paths []string
}

// Bridge queues file events until the next Drain.
type Bridge struct {
	mu     sync.Mutex
	queue  []event
	index  *artifact.RootsIndex
	state  Tracker
	logger *slog.Logger
}

// New creates a bridge resolving paths through index and marking state.
func New(index *artifact.RootsIndex, state Tracker, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{index: index, state: state, logger: logger}
}

// FilesGenerated queues files produced by another build step.
func (b *Bridge) FilesGenerated(files []Generated) {
	if len(files) == 0 {
		return
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path()
	}
	b.push(event{kind: generated, paths: paths})
}

// FilesDeleted queues files removed by another build step.
func (b *Bridge) FilesDeleted(paths []string) {
	if len(paths) == 0 {
		return
	}
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.Clean(p)
	}
	b.push(event{kind: deleted, paths: cleaned})
}

func (b *Bridge) push(e event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, e)
}

// Pending returns the number of queued events.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Discard drops every queued event and returns how many there were.
func (b *Bridge) Discard() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.queue)
	b.queue = nil
	return n
}

// Drain applies every queued event to the tracker, in arrival order, and
// returns how many paths it marked. Marking errors are logged and skipped:
// the next full scan recovers anything lost here.
func (b *Bridge) Drain() int {
	b.mu.Lock()
	queue := b.queue
	b.queue = nil
	b.mu.Unlock()

	marked := 0
	for _, e := range queue {
		for _, p := range e.paths {
			for _, root := range b.index.Descriptors(p) {
				switch e.kind {
				case generated:
					if err := b.state.MarkDirty(root.Artifact, root.Index, p); err != nil {
						b.logger.Debug("cannot mark generated file dirty",
							slog.String("path", p),
							slog.String("artifact", root.Artifact),
							slog.String("error", err.Error()))
						continue
					}
				case deleted:
					b.state.RegisterDeleted(root.Artifact, p)
				}
				marked++
			}
		}
	}
	return marked
}
