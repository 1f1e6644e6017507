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
// Package mapfs provides an in-memory filesystem implementation for testing.
package mapfs

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// MapFileSystem implements FileSystem using an in-memory fstest.MapFS.
// Every mutation advances an internal clock so modification times are
// strictly increasing, which lets stamp-based change detection see
// rewrites of same-sized files.
type MapFileSystem struct {
	mu      sync.RWMutex
	mapFS   fstest.MapFS
	clock   time.Time
	failRm  map[string]bool
	failWr  map[string]bool
	removed []string
}

// New creates a new in-memory filesystem for testing.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:  make(fstest.MapFS),
		clock:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		failRm: make(map[string]bool),
		failWr: make(map[string]bool),
	}
}

// AddFile adds or replaces a file in the in-memory filesystem.
func (mfs *MapFileSystem) AddFile(path string, content string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.mapFS[mfs.cleanPath(path)] = &fstest.MapFile{
		Data:    []byte(content),
		Mode:    mode,
		ModTime: mfs.tickLocked(),
	}
}

// AddDir adds a directory to the in-memory filesystem.
func (mfs *MapFileSystem) AddDir(path string, mode fs.FileMode) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.mapFS[mfs.cleanPath(path)] = &fstest.MapFile{
		Mode:    fs.ModeDir | mode.Perm(),
		ModTime: mfs.clock,
	}
}

// FailRemove makes every Remove of path fail with fs.ErrPermission until
// AllowRemove is called.
func (mfs *MapFileSystem) FailRemove(path string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.failRm[mfs.cleanPath(path)] = true
}

// AllowRemove clears a failure injected with FailRemove.
func (mfs *MapFileSystem) AllowRemove(path string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	delete(mfs.failRm, mfs.cleanPath(path))
}

// FailWrite makes every WriteFile of path fail with fs.ErrPermission until
// AllowWrite is called.
func (mfs *MapFileSystem) FailWrite(path string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.failWr[mfs.cleanPath(path)] = true
}

// AllowWrite clears a failure injected with FailWrite.
func (mfs *MapFileSystem) AllowWrite(path string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	delete(mfs.failWr, mfs.cleanPath(path))
}

// WriteFile implements FileSystem.
func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name = mfs.cleanPath(name)
	if mfs.failWr[name] {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrPermission}
	}
	if err := mfs.ensureParentDirLocked(name); err != nil {
		return err
	}

	mfs.mapFS[name] = &fstest.MapFile{
		Data:    append([]byte(nil), data...),
		Mode:    perm,
		ModTime: mfs.tickLocked(),
	}
	return nil
}

// ReadFile implements FileSystem.
func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.ReadFile(mfs.mapFS, mfs.cleanPath(name))
}

// Remove implements FileSystem.
func (mfs *MapFileSystem) Remove(name string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	name = mfs.cleanPath(name)
	if mfs.failRm[name] {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrPermission}
	}
	if _, exists := mfs.mapFS[name]; !exists {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}

	delete(mfs.mapFS, name)
	mfs.removed = append(mfs.removed, name)
	return nil
}

// Rename implements FileSystem.
func (mfs *MapFileSystem) Rename(oldpath, newpath string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	oldpath = mfs.cleanPath(oldpath)
	newpath = mfs.cleanPath(newpath)
	file, exists := mfs.mapFS[oldpath]
	if !exists {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	if mfs.failWr[newpath] {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrPermission}
	}
	delete(mfs.mapFS, oldpath)
	mfs.mapFS[newpath] = file
	return nil
}

// MkdirAll implements FileSystem.
func (mfs *MapFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	path = mfs.cleanPath(path)
	if path == "." || path == "" {
		return nil
	}
	if file, exists := mfs.mapFS[path]; exists {
		if !file.Mode.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: path, Err: fmt.Errorf("not a directory")}
		}
		return nil
	}

	mfs.mapFS[path] = &fstest.MapFile{
		Mode:    fs.ModeDir | perm.Perm(),
		ModTime: mfs.clock,
	}
	return nil
}

// Stat implements FileSystem.
func (mfs *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.Stat(mfs.mapFS, mfs.cleanPath(name))
}

// Exists implements FileSystem.
func (mfs *MapFileSystem) Exists(path string) bool {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	path = mfs.cleanPath(path)
	if _, exists := mfs.mapFS[path]; exists {
		return true
	}

	prefix := path + "/"
	for filePath := range mfs.mapFS {
		if strings.HasPrefix(filePath, prefix) {
			return true
		}
	}
	return false
}

// ReadDir implements FileSystem.
func (mfs *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return fs.ReadDir(mfs.mapFS, mfs.cleanPath(name))
}

// Open implements FileSystem.
func (mfs *MapFileSystem) Open(name string) (fs.File, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	return mfs.mapFS.Open(mfs.cleanPath(name))
}

// Files returns the contents of every regular file, keyed by absolute path.
func (mfs *MapFileSystem) Files() map[string]string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	result := make(map[string]string)
	for p, file := range mfs.mapFS {
		if file.Mode.IsDir() {
			continue
		}
		result["/"+p] = string(file.Data)
	}
	return result
}

// Removed returns the absolute paths removed so far, in removal order.
func (mfs *MapFileSystem) Removed() []string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	out := make([]string, len(mfs.removed))
	for i, p := range mfs.removed {
		out[i] = "/" + p
	}
	return out
}

// Snapshot returns a sorted listing of regular files for debugging output.
func (mfs *MapFileSystem) Snapshot() []string {
	files := mfs.Files()
	return slices.Sorted(maps.Keys(files))
}

func (mfs *MapFileSystem) tickLocked() time.Time {
	mfs.clock = mfs.clock.Add(time.Second)
	return mfs.clock
}

func (mfs *MapFileSystem) cleanPath(p string) string {
	cleaned := path.Clean(p)
	if !path.IsAbs(cleaned) {
		cleaned = "/" + cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

func (mfs *MapFileSystem) ensureParentDirLocked(filePath string) error {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}

	if file, exists := mfs.mapFS[dir]; exists && !file.Mode.IsDir() {
		return &fs.PathError{Op: "open", Path: filePath, Err: fmt.Errorf("not a directory")}
	}
	return nil
}
