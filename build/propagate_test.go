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
	"testing"

	"bennypowers.dev/kiln/mapping"
)

// link records source as a contributor of output under root.
func link(s *mapping.Store, root int, source, output string) {
	s.AppendContributor(output, mapping.Contributor{Source: source, Root: root})
	s.AddOutput(source, output)
}

// merged is a store where two roots feed one archive and a third source
// is copied on its own.
func merged() *mapping.Store {
	s := mapping.New()
	link(s, 0, "/src/a.class", "/out/app.jar")
	link(s, 0, "/src/b.class", "/out/app.jar")
	link(s, 1, "/res/c.txt", "/out/app.jar")
	link(s, 2, "/static/site.css", "/out/site.css")
	return s
}

func TestSnapshotEmpty(t *testing.T) {
	if !(Snapshot{}).Empty() {
		t.Error("Expected zero snapshot to be empty")
	}
	if !(Snapshot{Changed: map[int][]string{0: nil}}).Empty() {
		t.Error("Expected a root with no files to be empty")
	}
	if (Snapshot{Deleted: []string{"/x"}}).Empty() {
		t.Error("Expected deletions to count")
	}
}

func TestPropagateChangedSchedulesSiblings(t *testing.T) {
	s := merged()
	plan := Propagate(s, Snapshot{Changed: map[int][]string{0: {"/src/a.class"}}})

	if got := plan.Roots(); !slices.Equal(got, []int{0, 1}) {
		t.Errorf("Expected roots 0 and 1, got %v", got)
	}
	if got := plan.Sources(0); !slices.Equal(got, []string{"/src/a.class", "/src/b.class"}) {
		t.Errorf("Unexpected root 0 sources %v", got)
	}
	if got := plan.Sources(1); !slices.Equal(got, []string{"/res/c.txt"}) {
		t.Errorf("Unexpected root 1 sources %v", got)
	}
	if got := plan.ChangedOutputPaths(); !slices.Equal(got, []string{"/out/app.jar"}) {
		t.Errorf("Unexpected changed outputs %v", got)
	}
	if plan.ToDelete.Len() != 0 {
		t.Errorf("Expected no deletions, got %v", plan.ToDelete.Outputs())
	}
}

func TestPropagateNewSourceHasNoSiblings(t *testing.T) {
	plan := Propagate(merged(), Snapshot{Changed: map[int][]string{2: {"/static/new.css"}}})
	want := map[int]map[string]bool{2: {"/static/new.css": true}}
	if !maps.EqualFunc(plan.ToProcess, want, maps.Equal) {
		t.Errorf("Expected %v, got %v", want, plan.ToProcess)
	}
	if len(plan.ChangedOutputs) != 0 {
		t.Errorf("Expected no changed outputs, got %v", plan.ChangedOutputs)
	}
}

func TestPropagateDeleted(t *testing.T) {
	s := merged()
	plan := Propagate(s, Snapshot{Deleted: []string{"/static/site.css", "/src/b.class"}})

	if got := plan.ToDelete.Outputs(); !slices.Equal(got, []string{"/out/site.css", "/out/app.jar"}) {
		t.Errorf("Expected outputs in first-seen order, got %v", got)
	}
	if got := plan.ToDelete.SourcesOf("/out/app.jar"); !slices.Equal(got, []string{"/src/b.class"}) {
		t.Errorf("Unexpected sources of app.jar %v", got)
	}
	// The surviving siblings of app.jar are replayed; the deleted one is not.
	if got := plan.Sources(0); !slices.Equal(got, []string{"/src/a.class"}) {
		t.Errorf("Unexpected root 0 sources %v", got)
	}
	if got := plan.Sources(1); !slices.Equal(got, []string{"/res/c.txt"}) {
		t.Errorf("Unexpected root 1 sources %v", got)
	}
	if got := plan.Sources(2); len(got) != 0 {
		t.Errorf("Expected the deleted css not to be scheduled, got %v", got)
	}
}

func TestCandidatesDeduplicate(t *testing.T) {
	c := newCandidates()
	c.Add("/out/a", "/src/1")
	c.Add("/out/b", "/src/2")
	c.Add("/out/a", "/src/3")
	c.Add("/out/a", "/src/1")
	if !slices.Equal(c.Outputs(), []string{"/out/a", "/out/b"}) || c.Len() != 2 {
		t.Errorf("Unexpected outputs %v", c.Outputs())
	}
	if !slices.Equal(c.SourcesOf("/out/a"), []string{"/src/1", "/src/3"}) {
		t.Errorf("Unexpected sources %v", c.SourcesOf("/out/a"))
	}
}

func TestInvalidate(t *testing.T) {
	s := merged()
	snap := Snapshot{Changed: map[int][]string{0: {"/src/a.class"}}}
	plan := Propagate(s, snap)
	Invalidate(s, snap, plan)

	if _, ok := s.Contributors("/out/app.jar"); ok {
		t.Error("Expected the changed output's contributors to be dropped")
	}
	if got := s.Outputs("/src/a.class"); len(got) != 0 {
		t.Errorf("Expected the changed source's outputs to be dropped, got %v", got)
	}
	// Siblings still list the output until the replay relinks them.
	if got := s.Outputs("/src/b.class"); !slices.Equal(got, []string{"/out/app.jar"}) {
		t.Errorf("Expected sibling to keep its output, got %v", got)
	}
	if _, ok := s.Contributors("/out/site.css"); !ok {
		t.Error("Expected unrelated outputs to be untouched")
	}
}

func TestRestore(t *testing.T) {
	s := merged()
	snap := Snapshot{
		Deleted: []string{"/res/c.txt"},
		Changed: map[int][]string{0: {"/src/a.class"}},
	}
	plan := Propagate(s, snap)
	Invalidate(s, snap, plan)
	// The deletion of c.txt went through: it no longer lists the archive.
	s.RemoveOutputOf("/res/c.txt", "/out/app.jar")

	if !plan.restore(s, "/out/app.jar") {
		t.Fatal("Expected the archive to be restored")
	}
	contributors, _ := s.Contributors("/out/app.jar")
	want := []mapping.Contributor{
		{Source: "/src/a.class", Root: 0},
		{Source: "/src/b.class", Root: 0},
	}
	if !slices.Equal(contributors, want) {
		t.Errorf("Expected %v, got %v", want, contributors)
	}
	if err := s.Verify(); err != nil {
		t.Error(err)
	}
	if plan.restore(s, "/out/app.jar") {
		t.Error("Expected an output with a record not to be restored again")
	}
}
