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
	"errors"
	"path/filepath"
	"slices"
	"strings"
)

// ErrCycle marks an artifact whose layout includes itself.
var ErrCycle = errors.New("artifact includes itself")

// Sorter orders artifacts so that every included artifact precedes the
// artifact that includes it.
//
// An artifact includes another when it names it in Includes, or when one of
// its roots reads from inside the other's output path.
type Sorter struct {
	project *Project

	// includes maps artifact name -> names of the artifacts it includes,
	// in declaration order.
	includes map[string][]string
}

// NewSorter builds the inclusion graph of a project.
func NewSorter(project *Project) *Sorter {
	s := &Sorter{
		project:  project,
		includes: make(map[string][]string, len(project.Artifacts)),
	}
	for _, a := range project.Artifacts {
		var deps []string
		add := func(name string) {
			if _, ok := project.Lookup(name); ok && !slices.Contains(deps, name) {
				deps = append(deps, name)
			}
		}
		for _, name := range a.Includes {
			add(name)
		}
		for _, r := range a.Roots {
			for _, other := range project.Artifacts {
				if other.OutputPath != "" && within(r.Source, other.OutputPath) {
					add(other.Name)
				}
			}
		}
		s.includes[a.Name] = deps
	}
	return s
}

// Included returns the artifacts a directly includes.
func (s *Sorter) Included(name string) []string {
	return slices.Clone(s.includes[name])
}

// WithIncluded returns the given artifacts plus everything they include,
// transitively.
func (s *Sorter) WithIncluded(artifacts []*Artifact) map[string]bool {
	result := make(map[string]bool)
	queue := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		queue = append(queue, a.Name)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if result[current] {
			continue
		}
		result[current] = true
		queue = append(queue, s.includes[current]...)
	}
	return result
}

// SortedByInclusion returns every artifact of the project, included
// artifacts first. Ties keep declaration order. Artifacts on a cycle cannot
// be ordered and are appended last, in declaration order.
func (s *Sorter) SortedByInclusion() []*Artifact {
	arts := s.project.Artifacts
	position := make(map[string]int, len(arts))
	for i, a := range arts {
		position[a.Name] = i
	}

	indeg := make([]int, len(arts))
	dependents := make([][]int, len(arts))
	for i, a := range arts {
		for _, dep := range s.includes[a.Name] {
			j := position[dep]
			indeg[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range arts {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	out := make([]*Artifact, 0, len(arts))
	placed := make([]bool, len(arts))
	for len(ready) > 0 {
		slices.Sort(ready)
		n := ready[0]
		ready = ready[1:]
		out = append(out, arts[n])
		placed[n] = true
		for _, m := range dependents[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	for i, a := range arts {
		if !placed[i] {
			out = append(out, a)
		}
	}
	return out
}

// SelfIncluding maps each artifact that reaches an inclusion cycle to the
// first artifact on that cycle it reaches. An artifact on a cycle maps to
// itself.
func (s *Sorter) SelfIncluding() map[string]*Artifact {
	onCycle := make(map[string]bool)
	for _, a := range s.project.Artifacts {
		if s.reaches(a.Name, a.Name) {
			onCycle[a.Name] = true
		}
	}

	result := make(map[string]*Artifact)
	for _, a := range s.project.Artifacts {
		visited := make(map[string]bool)
		queue := []string{a.Name}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			if visited[current] {
				continue
			}
			visited[current] = true
			if onCycle[current] {
				cause, _ := s.project.Lookup(current)
				result[a.Name] = cause
				break
			}
			queue = append(queue, s.includes[current]...)
		}
	}
	return result
}

// reaches reports whether target is reachable from start through at least
// one inclusion edge.
func (s *Sorter) reaches(start, target string) bool {
	visited := make(map[string]bool)
	queue := slices.Clone(s.includes[start])
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == target {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		queue = append(queue, s.includes[current]...)
	}
	return false
}

func within(p, dir string) bool {
	p = filepath.Clean(p)
	dir = filepath.Clean(dir)
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
