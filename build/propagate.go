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
package build

import (
	"maps"
	"slices"

	"bennypowers.dev/kiln/mapping"
)

// Snapshot is the dirty state consumed by one artifact build.
type Snapshot struct {
	// Deleted lists sources that no longer exist.
	Deleted []string

	// Changed maps root index -> sources new or modified under that root.
	Changed map[int][]string
}

// Empty reports whether the snapshot holds no change at all.
func (s Snapshot) Empty() bool {
	if len(s.Deleted) > 0 {
		return false
	}
	for _, files := range s.Changed {
		if len(files) > 0 {
			return false
		}
	}
	return true
}

// Plan is what one build cycle must do for an artifact.
type Plan struct {
	// ToProcess maps root index -> sources to replay through that root.
	ToProcess map[int]map[string]bool

	// ToDelete holds outputs of deleted sources, with the deleted sources
	// that produced them.
	ToDelete *Candidates

	// ChangedOutputs holds the outputs of changed sources; their contributor
	// lists are rebuilt from scratch by the replay.
	ChangedOutputs map[string]bool

	// previous holds the contributors of each changed output before
	// invalidation, so an output the replay abandons can be restored.
	previous map[string][]mapping.Contributor
	deleted  map[string]bool
}

// Sources returns the sources scheduled under root, sorted.
func (p *Plan) Sources(root int) []string {
	return slices.Sorted(maps.Keys(p.ToProcess[root]))
}

// Roots returns the root indices with scheduled sources, sorted.
func (p *Plan) Roots() []int {
	return slices.Sorted(maps.Keys(p.ToProcess))
}

// Candidates groups deletion candidates by output path, keeping the order
// in which outputs were first seen.
type Candidates struct {
	outputs []string
	sources map[string][]string
}

func newCandidates() *Candidates {
	return &Candidates{sources: make(map[string][]string)}
}

// Add records that the deleted source produced output.
func (c *Candidates) Add(output, source string) {
	list, seen := c.sources[output]
	if !seen {
		c.outputs = append(c.outputs, output)
	}
	if !slices.Contains(list, source) {
		c.sources[output] = append(list, source)
	}
}

// Outputs returns the distinct outputs in first-seen order.
func (c *Candidates) Outputs() []string { return c.outputs }

// SourcesOf returns the deleted sources that produced output.
func (c *Candidates) SourcesOf(output string) []string { return c.sources[output] }

// Len returns the number of distinct outputs.
func (c *Candidates) Len() int { return len(c.outputs) }

// Propagate computes the plan for a snapshot against the current store.
//
// Every output of a deleted source becomes a deletion candidate, and every
// other contributor of such an output is scheduled again. Every changed
// source is scheduled, its outputs are marked changed, and the other
// contributors of those outputs are scheduled too, so an output merged from
// several sources is rebuilt with all of them. Deleted sources are never
// scheduled. One hop suffices: the store lists every live contributor of
// each output as of the previous cycle.
func Propagate(store *mapping.Store, snap Snapshot) *Plan {
	deleted := make(map[string]bool, len(snap.Deleted))
	for _, p := range snap.Deleted {
		deleted[p] = true
	}

	plan := &Plan{
		ToProcess:      make(map[int]map[string]bool),
		ToDelete:       newCandidates(),
		ChangedOutputs: make(map[string]bool),
		previous:       make(map[string][]mapping.Contributor),
		deleted:        deleted,
	}
	schedule := func(root int, source string) {
		if deleted[source] {
			return
		}
		if plan.ToProcess[root] == nil {
			plan.ToProcess[root] = make(map[string]bool)
		}
		plan.ToProcess[root][source] = true
	}
	scheduleSiblings := func(output string) {
		contributors, _ := store.Contributors(output)
		for _, c := range contributors {
			schedule(c.Root, c.Source)
		}
	}

	for _, source := range snap.Deleted {
		for _, output := range store.Outputs(source) {
			plan.ToDelete.Add(output, source)
			scheduleSiblings(output)
		}
	}

	for _, root := range slices.Sorted(maps.Keys(snap.Changed)) {
		for _, source := range snap.Changed[root] {
			schedule(root, source)
			for _, output := range store.Outputs(source) {
				if !plan.ChangedOutputs[output] {
					plan.ChangedOutputs[output] = true
					plan.previous[output], _ = store.Contributors(output)
				}
				scheduleSiblings(output)
			}
		}
	}
	return plan
}

// ChangedOutputPaths returns the changed outputs, sorted.
func (p *Plan) ChangedOutputPaths() []string {
	return slices.Sorted(maps.Keys(p.ChangedOutputs))
}

// restore puts back the pre-invalidation contributors of a changed output
// that has no record, keeping both relations in step. A deleted source is
// put back only while it still lists the output, that is when removing the
// output failed.
func (p *Plan) restore(store *mapping.Store, output string) bool {
	if _, ok := store.Contributors(output); ok {
		return false
	}
	var kept []mapping.Contributor
	for _, c := range p.previous[output] {
		if p.deleted[c.Source] && !slices.Contains(store.Outputs(c.Source), output) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return false
	}
	store.SetContributors(output, kept)
	for _, c := range kept {
		store.AddOutput(c.Source, output)
	}
	return true
}

// Invalidate clears the store entries the replay rebuilds: the outputs of
// every changed source and the contributors of every changed output.
func Invalidate(store *mapping.Store, snap Snapshot, plan *Plan) {
	for _, files := range snap.Changed {
		for _, source := range files {
			store.RemoveSource(source)
		}
	}
	for output := range plan.ChangedOutputs {
		store.RemoveOutput(output)
	}
}
