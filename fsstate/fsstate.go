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

// Package fsstate tracks which source files of each artifact are new,
// changed or deleted since the artifact was last marked up to date.
//
// Change detection compares file modification time and size against the
// stamps recorded at the last successful build. The first time a target is
// used in a process its roots are scanned; after that, changes arrive
// through MarkDirty and RegisterDeleted.
package fsstate

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"maps"
	"slices"
	"sync"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/codec"
)

// Stamp records what a source looked like when it was last packaged.
type Stamp struct {
	ModTime int64 `cbor:"m"`
	Size    int64 `cbor:"z"`
}

// dirtyStamp never matches a real file, so a dirty file stays dirty across
// restarts until MarkUpToDate stamps it.
var dirtyStamp = Stamp{ModTime: -1, Size: -1}

func stampOf(info iofs.FileInfo) Stamp {
	return Stamp{ModTime: info.ModTime().UnixNano(), Size: info.Size()}
}

type target struct {
	initialized bool
	stamps      map[string]Stamp
	dirty       map[int]map[string]bool
	deleted     map[string]bool

	// consumed holds deleted paths handed out by GetAndClearDeletedPaths
	// whose stamps are dropped by the next MarkUpToDate.
	consumed map[string]bool
}

func newTarget() *target {
	return &target{
		stamps:   make(map[string]Stamp),
		dirty:    make(map[int]map[string]bool),
		deleted:  make(map[string]bool),
		consumed: make(map[string]bool),
	}
}

// State is the dirty-state tracker for every artifact of a build. It is
// safe for concurrent use.
type State struct {
	mu      sync.Mutex
	fsys    fs.FileSystem
	targets map[string]*target
}

// New creates an empty tracker reading files through fsys.
func New(fsys fs.FileSystem) *State {
	return &State{
		fsys:    fsys,
		targets: make(map[string]*target),
	}
}

func (s *State) targetLocked(name string) *target {
	t, ok := s.targets[name]
	if !ok {
		t = newTarget()
		s.targets[name] = t
	}
	return t
}

// EnsureInitialized loads the stamps persisted at stampsPath and scans the
// artifact's roots, once per tracker. Files that are new or whose stamp
// differs become dirty under every root covering them; stamped files that
// are gone become deleted.
func (s *State) EnsureInitialized(a *artifact.Artifact, stampsPath string) error {
	s.mu.Lock()
	t := s.targetLocked(a.Name)
	if t.initialized {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	stamps, err := loadStamps(s.fsys, stampsPath)
	if err != nil {
		return err
	}

	present := make(map[string]bool)
	type dirtyFile struct {
		root int
		path string
	}
	var changed []dirtyFile
	for _, root := range a.Roots {
		files, err := root.Files(s.fsys)
		if err != nil {
			return fmt.Errorf("scanning root %s: %w", root.Source, err)
		}
		for _, file := range files {
			present[file] = true
			info, err := s.fsys.Stat(file)
			if err != nil {
				return fmt.Errorf("scanning root %s: %w", root.Source, err)
			}
			if old, ok := stamps[file]; !ok || old != stampOf(info) {
				changed = append(changed, dirtyFile{root: root.Index, path: file})
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t = s.targetLocked(a.Name)
	if t.initialized {
		return nil
	}
	t.initialized = true
	maps.Copy(t.stamps, stamps)
	for _, f := range changed {
		t.markDirty(f.root, f.path)
	}
	for path := range stamps {
		if !present[path] {
			t.deleted[path] = true
		}
	}
	return nil
}

func (t *target) markDirty(root int, path string) {
	if t.dirty[root] == nil {
		t.dirty[root] = make(map[string]bool)
	}
	t.dirty[root][path] = true
	delete(t.deleted, path)
	// A rescan in a later process must find the file again if this one
	// never finishes the build, whether it still exists or not.
	t.stamps[path] = dirtyStamp
}

// MarkDirty records path as changed under the given root of a target. It
// fails when the file cannot be read; the next scan recovers the change.
func (s *State) MarkDirty(targetName string, root int, path string) error {
	if _, err := s.fsys.Stat(path); err != nil {
		return fmt.Errorf("marking %s dirty: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetLocked(targetName).markDirty(root, path)
	return nil
}

// RegisterDeleted records path as deleted for a target.
func (s *State) RegisterDeleted(targetName string, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.targetLocked(targetName)
	t.deleted[path] = true
	for _, files := range t.dirty {
		delete(files, path)
	}
}

// GetAndClearDeletedPaths returns the deleted sources of a target, sorted,
// and forgets them.
func (s *State) GetAndClearDeletedPaths(targetName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.targetLocked(targetName)
	out := slices.Sorted(maps.Keys(t.deleted))
	for _, p := range out {
		t.consumed[p] = true
	}
	clear(t.deleted)
	return out
}

// SourcesToRecompile returns the changed sources of a target keyed by root
// index. Each list is sorted. Roots without changes are omitted.
func (s *State) SourcesToRecompile(targetName string) map[int][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.targetLocked(targetName)
	out := make(map[int][]string, len(t.dirty))
	for root, files := range t.dirty {
		if len(files) == 0 {
			continue
		}
		out[root] = slices.Sorted(maps.Keys(files))
	}
	return out
}

// MarkUpToDate stamps every dirty source of a target with its current
// state, drops the stamps of consumed deletions and clears the dirty set.
func (s *State) MarkUpToDate(targetName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.targetLocked(targetName)
	for _, files := range t.dirty {
		for path := range files {
			info, err := s.fsys.Stat(path)
			if err != nil {
				delete(t.stamps, path)
				continue
			}
			t.stamps[path] = stampOf(info)
		}
	}
	for path := range t.consumed {
		if !t.deleted[path] {
			delete(t.stamps, path)
		}
	}
	clear(t.dirty)
	clear(t.consumed)
}

// Clear forgets everything known about a target, including its stamps.
func (s *State) Clear(targetName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, targetName)
}

// Save persists the stamps of a target to path.
func (s *State) Save(targetName, path string) error {
	s.mu.Lock()
	stamps := maps.Clone(s.targetLocked(targetName).stamps)
	s.mu.Unlock()

	data, err := codec.Marshal(stamps)
	if err != nil {
		return fmt.Errorf("encoding fs state: %w", err)
	}
	if err := fs.WriteFileAtomic(s.fsys, path, data, 0644); err != nil {
		return fmt.Errorf("writing fs state: %w", err)
	}
	return nil
}

func loadStamps(fsys fs.FileSystem, path string) (map[string]Stamp, error) {
	stamps := make(map[string]Stamp)
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return stamps, nil
		}
		return nil, fmt.Errorf("reading fs state: %w", err)
	}
	if err := codec.Unmarshal(data, &stamps); err != nil {
		return nil, fmt.Errorf("decoding fs state %s: %w", path, err)
	}
	return stamps, nil
}
