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
package mapping

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"maps"
	"slices"

	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/internal/codec"
)

// formatVersion is bumped whenever the on-disk layout changes; older files
// are discarded, which forces a full rebuild.
const formatVersion = 1

type fileState struct {
	Version        int                      `cbor:"v"`
	SourceToOutput map[string][]string      `cbor:"so"`
	OutputToSource map[string][]Contributor `cbor:"os"`
}

// Load reads a store saved with Save. A missing file, or one written in an
// older format, yields an empty store.
func Load(fsys fs.FileSystem, path string) (*Store, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading mapping state: %w", err)
	}

	var state fileState
	if err := codec.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decoding mapping state %s: %w", path, err)
	}
	if state.Version != formatVersion {
		return New(), nil
	}

	s := New()
	for src, outs := range state.SourceToOutput {
		set := make(map[string]bool, len(outs))
		for _, out := range outs {
			set[out] = true
		}
		if len(set) > 0 {
			s.srcOut[src] = set
		}
	}
	for out, list := range state.OutputToSource {
		if list == nil {
			list = []Contributor{}
		}
		s.outSrc[out] = list
	}
	return s, nil
}

// Save writes the store atomically to path.
func (s *Store) Save(fsys fs.FileSystem, path string) error {
	s.mu.RLock()
	state := fileState{
		Version:        formatVersion,
		SourceToOutput: make(map[string][]string, len(s.srcOut)),
		OutputToSource: make(map[string][]Contributor, len(s.outSrc)),
	}
	for src, outs := range s.srcOut {
		state.SourceToOutput[src] = slices.Sorted(maps.Keys(outs))
	}
	for out, list := range s.outSrc {
		state.OutputToSource[out] = slices.Clone(list)
	}
	s.mu.RUnlock()

	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding mapping state: %w", err)
	}
	if err := fs.WriteFileAtomic(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("writing mapping state: %w", err)
	}
	return nil
}
