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

// Package mapping holds the two path relations an incremental artifact
// build keeps between runs: which outputs each source produced, and which
// sources (with their root index) contribute to each output.
//
// The relations are inverse views of the same fact. Callers mutate them
// through paired operations; Verify reports any divergence.
package mapping

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Contributor is one source feeding an output, tagged with the index of
// the root descriptor it was found under.
type Contributor struct {
	Source string `cbor:"s"`
	Root   int    `cbor:"r"`
}

// Store holds the source→outputs and output→contributors relations for one
// artifact.
type Store struct {
	mu sync.RWMutex

	// srcOut maps source path -> set of output paths it produced
	srcOut map[string]map[string]bool

	// outSrc maps output path -> ordered contributors. A present key with
	// an empty list means the output is known but not yet populated.
	outSrc map[string][]Contributor
}

// New creates an empty store.
func New() *Store {
	return &Store{
		srcOut: make(map[string]map[string]bool),
		outSrc: make(map[string][]Contributor),
	}
}

// Outputs returns the outputs recorded for source, sorted.
func (s *Store) Outputs(source string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outs := s.srcOut[source]
	if len(outs) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(outs))
}

// AddOutput records that source produced output.
func (s *Store) AddOutput(source, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srcOut[source] == nil {
		s.srcOut[source] = make(map[string]bool)
	}
	s.srcOut[source][output] = true
}

// RemoveSource drops every output recorded for source.
func (s *Store) RemoveSource(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.srcOut, source)
}

// RemoveOutputOf drops output from the outputs recorded for source.
func (s *Store) RemoveOutputOf(source, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outs := s.srcOut[source]
	delete(outs, output)
	if len(outs) == 0 {
		delete(s.srcOut, source)
	}
}

// Contributors returns the contributors of output in order. The boolean is
// false when the store holds no record for output at all, which differs
// from a record with no contributors yet.
func (s *Store) Contributors(output string) ([]Contributor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.outSrc[output]
	return slices.Clone(list), ok
}

// SetContributors replaces the contributors of output.
func (s *Store) SetContributors(output string, contributors []Contributor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contributors == nil {
		contributors = []Contributor{}
	}
	s.outSrc[output] = slices.Clone(contributors)
}

// AppendContributor adds c to the end of output's contributors unless it is
// already listed.
func (s *Store) AppendContributor(output string, c Contributor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.outSrc[output]
	if slices.Contains(list, c) {
		return
	}
	s.outSrc[output] = append(list, c)
}

// RemoveOutput drops the contributor record of output.
func (s *Store) RemoveOutput(output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outSrc, output)
}

// DetachOutput removes output from both relations: its contributor record
// and every source's output set. Unlike RemoveOutputOf it does not need to
// know which sources listed it.
func (s *Store) DetachOutput(output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outSrc, output)
	for src, outs := range s.srcOut {
		delete(outs, output)
		if len(outs) == 0 {
			delete(s.srcOut, src)
		}
	}
}

// Prune drops every half-recorded link: an output listed for a source that
// is not among its contributors, or a contributor whose source does not
// list the output. It returns the affected sources, sorted. Pruning
// restores the inverse invariant after an interrupted build; the returned
// sources must be reprocessed to restore what was dropped.
func (s *Store) Prune() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := make(map[string]bool)
	for src, outs := range s.srcOut {
		for out := range outs {
			if !slices.ContainsFunc(s.outSrc[out], func(c Contributor) bool { return c.Source == src }) {
				delete(outs, out)
				affected[src] = true
			}
		}
		if len(outs) == 0 {
			delete(s.srcOut, src)
		}
	}
	for out, list := range s.outSrc {
		kept := list[:0:0]
		for _, c := range list {
			if s.srcOut[c.Source][out] {
				kept = append(kept, c)
			} else {
				affected[c.Source] = true
			}
		}
		s.outSrc[out] = kept
	}
	return slices.Sorted(maps.Keys(affected))
}

// Sources returns every source with at least one output, sorted.
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.srcOut))
}

// OutputPaths returns every output with a contributor record, sorted.
func (s *Store) OutputPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.outSrc))
}

// Empty reports whether both relations are empty.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.srcOut) == 0 && len(s.outSrc) == 0
}

// Clone creates a deep copy of the store.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := New()
	for src, outs := range s.srcOut {
		clone.srcOut[src] = maps.Clone(outs)
	}
	for out, list := range s.outSrc {
		clone.outSrc[out] = slices.Clone(list)
	}
	return clone
}

// Equal reports whether two stores hold the same relations.
func (s *Store) Equal(other *Store) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	if !maps.EqualFunc(s.srcOut, other.srcOut, func(a, b map[string]bool) bool {
		return maps.Equal(a, b)
	}) {
		return false
	}
	return maps.EqualFunc(s.outSrc, other.outSrc, func(a, b []Contributor) bool {
		return slices.Equal(a, b)
	})
}

// Verify checks that the two relations are inverse views of each other:
// output o is recorded for source s exactly when s is a contributor of o.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range slices.Sorted(maps.Keys(s.srcOut)) {
		for _, out := range slices.Sorted(maps.Keys(s.srcOut[src])) {
			if !slices.ContainsFunc(s.outSrc[out], func(c Contributor) bool { return c.Source == src }) {
				return fmt.Errorf("output %s recorded for source %s but %s is not a contributor", out, src, src)
			}
		}
	}
	for _, out := range slices.Sorted(maps.Keys(s.outSrc)) {
		for _, c := range s.outSrc[out] {
			if !s.srcOut[c.Source][out] {
				return fmt.Errorf("source %s contributes to %s but the output is not recorded for it", c.Source, out)
			}
		}
	}
	return nil
}
