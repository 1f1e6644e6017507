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

// Package artifact models packaging targets: artifacts, the root
// descriptors that feed them, and where each root's files land.
package artifact

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Kind discriminates the two destination variants.
type Kind int

const (
	// Exploded destinations receive verbatim copies of source files.
	Exploded Kind = iota
	// ArchiveEntry destinations place files as entries of a shared archive.
	ArchiveEntry
)

func (k Kind) String() string {
	switch k {
	case Exploded:
		return "exploded"
	case ArchiveEntry:
		return "archive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Compression selects the zip method used for archive entries.
type Compression string

const (
	Deflate Compression = "deflate"
	Store   Compression = "store"
	Zstd    Compression = "zstd"
)

// ParseCompression validates a compression name. Empty means Deflate.
func ParseCompression(name string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(name))) {
	case "", Deflate:
		return Deflate, nil
	case Store:
		return Store, nil
	case Zstd:
		return Zstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q: must be one of deflate, store, zstd", name)
	}
}

// ArchiveInfo identifies one physical output archive. Its path is its
// identity: any number of destinations may share one ArchiveInfo.
type ArchiveInfo struct {
	Path        string
	Compression Compression
}

// Destination is where a root's matched files are written.
type Destination struct {
	Kind Kind

	// Dir is the output directory for Exploded destinations, or the
	// directory inside the archive for ArchiveEntry destinations.
	Dir string

	// Archive is set only for ArchiveEntry destinations.
	Archive *ArchiveInfo
}

// OutputPath returns the output path recorded in the mapping store for a
// file at rel under the root. Archive entries all map to the archive file.
func (d Destination) OutputPath(rel string) string {
	if d.Kind == ArchiveEntry {
		return d.Archive.Path
	}
	return filepath.Join(d.Dir, filepath.FromSlash(rel))
}

// EntryName returns the name of the archive entry for a file at rel.
func (d Destination) EntryName(rel string) string {
	return strings.TrimPrefix(path.Join(filepath.ToSlash(d.Dir), filepath.ToSlash(rel)), "/")
}

// RootDescriptor is one declared source root within an artifact's layout.
type RootDescriptor struct {
	// Index is stable for the lifetime of the layout and unique within
	// the artifact.
	Index int

	// Artifact names the target this root feeds.
	Artifact string

	// Source is a file or a directory.
	Source string

	// Pattern is a doublestar pattern matched against paths relative to
	// Source. Empty matches everything.
	Pattern string

	Destination Destination
}

// Relative returns the path of p relative to the root, slash-separated, and
// whether the root covers p at all.
func (r *RootDescriptor) Relative(p string) (string, bool) {
	p = filepath.Clean(p)
	if p == r.Source {
		return filepath.Base(p), true
	}
	prefix := r.Source + string(filepath.Separator)
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	rel := filepath.ToSlash(strings.TrimPrefix(p, prefix))
	if !matchPattern(r.Pattern, rel) {
		return "", false
	}
	return rel, true
}

// Covers reports whether p belongs to this root.
func (r *RootDescriptor) Covers(p string) bool {
	_, ok := r.Relative(p)
	return ok
}

func (r *RootDescriptor) String() string {
	return fmt.Sprintf("%s#%d(%s -> %s)", r.Artifact, r.Index, r.Source, r.Destination.Kind)
}

// Artifact is a named packaging target.
type Artifact struct {
	Name       string
	OutputPath string

	// Includes lists artifacts whose output this artifact packages.
	Includes []string

	// Roots is the ordered layout. Order decides which root wins when two
	// roots produce the same output.
	Roots []*RootDescriptor
}

// Root returns the descriptor with the given index, or nil.
func (a *Artifact) Root(index int) *RootDescriptor {
	for _, r := range a.Roots {
		if r.Index == index {
			return r
		}
	}
	return nil
}

// Archives returns each distinct archive of the layout, in first-use order.
func (a *Artifact) Archives() []*ArchiveInfo {
	var out []*ArchiveInfo
	seen := make(map[string]bool)
	for _, r := range a.Roots {
		if r.Destination.Kind != ArchiveEntry || seen[r.Destination.Archive.Path] {
			continue
		}
		seen[r.Destination.Archive.Path] = true
		out = append(out, r.Destination.Archive)
	}
	return out
}

// RootsFor returns the roots feeding the archive at archivePath, in layout
// order.
func (a *Artifact) RootsFor(archivePath string) []*RootDescriptor {
	var out []*RootDescriptor
	for _, r := range a.Roots {
		if r.Destination.Kind == ArchiveEntry && r.Destination.Archive.Path == archivePath {
			out = append(out, r)
		}
	}
	return out
}

// Project is the full set of artifacts loaded from one project file.
type Project struct {
	// Dir is the directory relative paths in the project file resolve against.
	Dir       string
	Artifacts []*Artifact
}

// Lookup returns the artifact with the given name.
func (p *Project) Lookup(name string) (*Artifact, bool) {
	i := slices.IndexFunc(p.Artifacts, func(a *Artifact) bool { return a.Name == name })
	if i < 0 {
		return nil, false
	}
	return p.Artifacts[i], true
}

// Select resolves artifact names. No names selects every artifact.
func (p *Project) Select(names []string) ([]*Artifact, error) {
	if len(names) == 0 {
		return slices.Clone(p.Artifacts), nil
	}
	out := make([]*Artifact, 0, len(names))
	for _, name := range names {
		a, ok := p.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown artifact %q", name)
		}
		out = append(out, a)
	}
	return out, nil
}
