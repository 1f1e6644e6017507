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
package artifact

import (
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const rootsIndexCacheSize = 4096

// RootsIndex finds the root descriptors covering a path, across every
// artifact of a project. Lookups are cached; the index is immutable once
// built, so a changed layout needs a new index.
type RootsIndex struct {
	roots []*RootDescriptor
	cache *lru.Cache[string, []*RootDescriptor]
}

// NewRootsIndex indexes every root of the project.
func NewRootsIndex(project *Project) *RootsIndex {
	cache, err := lru.New[string, []*RootDescriptor](rootsIndexCacheSize)
	if err != nil {
		// Only a non-positive size makes lru.New fail.
		panic(err)
	}
	idx := &RootsIndex{cache: cache}
	for _, a := range project.Artifacts {
		idx.roots = append(idx.roots, a.Roots...)
	}
	return idx
}

// Descriptors returns the roots covering path, in project order.
func (idx *RootsIndex) Descriptors(path string) []*RootDescriptor {
	path = filepath.Clean(path)
	if cached, ok := idx.cache.Get(path); ok {
		return cached
	}
	var out []*RootDescriptor
	for _, r := range idx.roots {
		if r.Covers(path) {
			out = append(out, r)
		}
	}
	idx.cache.Add(path, out)
	return out
}

// Roots returns every indexed root.
func (idx *RootsIndex) Roots() []*RootDescriptor {
	return idx.roots
}
