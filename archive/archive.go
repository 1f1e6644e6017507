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

// Package archive rewrites output archives (zip files) from an artifact's
// layout. Archives are never patched: each changed archive is written
// anew to a temporary file and renamed into place.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/mapping"
)

// Entry is one file packed into an archive.
type Entry struct {
	Name   string
	Source string
	Root   int
}

// Writer rewrites archives and records their contributors.
type Writer struct {
	fsys fs.FileSystem
	jobs int

	// storeMu serializes mapping updates from parallel rewrites.
	storeMu sync.Mutex
}

// NewWriter creates a writer rewriting up to jobs archives at once. A
// non-positive jobs uses the number of CPUs.
func NewWriter(fsys fs.FileSystem, jobs int) *Writer {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	return &Writer{fsys: fsys, jobs: jobs}
}

// Write rewrites every given archive of artifact a from the files
// currently under the roots feeding it, then replaces each archive's
// contributors in store with the sources it packed, in layout order.
// An archive left with no entries is removed.
func (w *Writer) Write(ctx context.Context, a *artifact.Artifact, archives []*artifact.ArchiveInfo, store *mapping.Store) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.jobs)
	for _, info := range archives {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.rewrite(a, info, store); err != nil {
				return fmt.Errorf("rewriting archive %s: %w", info.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Writer) rewrite(a *artifact.Artifact, info *artifact.ArchiveInfo, store *mapping.Store) error {
	entries, contributors, err := w.collect(a, info.Path)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		if err := fs.RemoveFile(w.fsys, info.Path); err != nil {
			return err
		}
		w.storeMu.Lock()
		store.DetachOutput(info.Path)
		w.storeMu.Unlock()
		return nil
	}

	data, err := w.pack(info, entries)
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(w.fsys, info.Path, data, 0644); err != nil {
		return err
	}

	w.storeMu.Lock()
	defer w.storeMu.Unlock()
	store.DetachOutput(info.Path)
	store.SetContributors(info.Path, contributors)
	for _, c := range contributors {
		store.AddOutput(c.Source, info.Path)
	}
	return nil
}

// collect enumerates the archive's entries. When two roots produce the same
// entry name the first root wins; later sources still count as
// contributors so that changing them rebuilds the archive.
func (w *Writer) collect(a *artifact.Artifact, archivePath string) ([]Entry, []mapping.Contributor, error) {
	var entries []Entry
	var contributors []mapping.Contributor
	names := make(map[string]bool)
	for _, root := range a.RootsFor(archivePath) {
		files, err := root.Files(w.fsys)
		if err != nil {
			return nil, nil, err
		}
		for _, file := range files {
			rel, ok := root.Relative(file)
			if !ok {
				continue
			}
			c := mapping.Contributor{Source: file, Root: root.Index}
			if !slices.Contains(contributors, c) {
				contributors = append(contributors, c)
			}
			name := root.Destination.EntryName(rel)
			if names[name] {
				continue
			}
			names[name] = true
			entries = append(entries, Entry{Name: name, Source: file, Root: root.Index})
		}
	}
	return entries, contributors, nil
}

func (w *Writer) pack(info *artifact.ArchiveInfo, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	method := zip.Deflate
	switch info.Compression {
	case artifact.Store:
		method = zip.Store
	case artifact.Zstd:
		method = zstd.ZipMethodWinZip
		zw.RegisterCompressor(method, zstd.ZipCompressor())
	}

	for _, e := range entries {
		data, err := w.fsys.ReadFile(e.Source)
		if err != nil {
			return nil, err
		}
		header := &zip.FileHeader{Name: e.Name, Method: method}
		if stat, err := w.fsys.Stat(e.Source); err == nil {
			header.Modified = stat.ModTime()
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadEntries returns the entry names and contents of an archive, in
// archive order.
func ReadEntries(fsys fs.FileSystem, path string) ([]string, map[string]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	var names []string
	contents := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		var content bytes.Buffer
		_, err = content.ReadFrom(rc)
		closeErr := rc.Close()
		if err != nil {
			return nil, nil, err
		}
		if closeErr != nil {
			return nil, nil, closeErr
		}
		names = append(names, f.Name)
		contents[f.Name] = content.String()
	}
	return names, contents, nil
}
