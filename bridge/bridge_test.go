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
package bridge_test

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/bridge"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (r *recorder) MarkDirty(target string, root int, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[path] {
		return errors.New("unreadable")
	}
	r.calls = append(r.calls, fmt.Sprintf("dirty %s#%d %s", target, root, path))
	return nil
}

func (r *recorder) RegisterDeleted(target string, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("deleted %s %s", target, path))
}

func index() *artifact.RootsIndex {
	return artifact.NewRootsIndex(&artifact.Project{Artifacts: []*artifact.Artifact{
		{Name: "web", Roots: []*artifact.RootDescriptor{
			{Index: 0, Artifact: "web", Source: "/gen"},
			{Index: 1, Artifact: "web", Source: "/gen", Pattern: "**/*.js"},
		}},
		{Name: "lib", Roots: []*artifact.RootDescriptor{
			{Index: 0, Artifact: "lib", Source: "/gen/lib"},
		}},
	}})
}

func TestDrainAppliesEventsInOrder(t *testing.T) {
	rec := &recorder{}
	b := bridge.New(index(), rec, nil)

	b.FilesGenerated([]bridge.Generated{{Root: "/gen", Relative: "lib/a.js"}})
	b.FilesDeleted([]string{"/gen/old.css", "/elsewhere/x"})
	b.FilesGenerated(nil)
	if got := b.Pending(); got != 2 {
		t.Fatalf("Expected 2 pending events, got %d", got)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("Expected nothing applied before Drain, got %v", rec.calls)
	}

	if got := b.Drain(); got != 4 {
		t.Errorf("Expected 4 markings, got %d", got)
	}
	want := []string{
		"dirty web#0 /gen/lib/a.js",
		"dirty web#1 /gen/lib/a.js",
		"dirty lib#0 /gen/lib/a.js",
		"deleted web /gen/old.css",
	}
	if !slices.Equal(rec.calls, want) {
		t.Errorf("Expected %v, got %v", want, rec.calls)
	}
	if got := b.Pending(); got != 0 {
		t.Errorf("Expected an empty queue, got %d", got)
	}
	if got := b.Drain(); got != 0 {
		t.Errorf("Expected a second drain to do nothing, got %d", got)
	}
}

func TestDrainSkipsUnmarkableFiles(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"/gen/bad.txt": true}}
	b := bridge.New(index(), rec, nil)
	b.FilesGenerated([]bridge.Generated{
		{Root: "/gen", Relative: "bad.txt"},
		{Root: "/gen", Relative: "good.txt"},
	})
	if got := b.Drain(); got != 1 {
		t.Errorf("Expected 1 marking, got %d", got)
	}
	if !slices.Equal(rec.calls, []string{"dirty web#0 /gen/good.txt"}) {
		t.Errorf("Unexpected calls %v", rec.calls)
	}
}

func TestConcurrentEvents(t *testing.T) {
	rec := &recorder{}
	b := bridge.New(index(), rec, nil)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.FilesDeleted([]string{fmt.Sprintf("/gen/lib/f%d", i)})
		}()
	}
	wg.Wait()
	if got := b.Pending(); got != 20 {
		t.Fatalf("Expected 20 pending events, got %d", got)
	}
	// Each path is under web#0 and lib#0.
	if got := b.Drain(); got != 40 {
		t.Errorf("Expected 40 markings, got %d", got)
	}
}

func TestGeneratedPath(t *testing.T) {
	g := bridge.Generated{Root: "/gen", Relative: "a/b.js"}
	if got := g.Path(); got != "/gen/a/b.js" {
		t.Errorf("Unexpected path %q", got)
	}
}

func TestDiscardDropsQueue(t *testing.T) {
	rec := &recorder{}
	b := bridge.New(index(), rec, nil)
	b.FilesDeleted([]string{"/gen/a.css"})
	b.FilesGenerated([]bridge.Generated{{Root: "/gen", Relative: "b.js"}})
	if got := b.Discard(); got != 2 {
		t.Errorf("Expected 2 discarded events, got %d", got)
	}
	if got := b.Drain(); got != 0 || len(rec.calls) != 0 {
		t.Errorf("Expected nothing applied, got %d %v", got, rec.calls)
	}
}
