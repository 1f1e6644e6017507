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
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/mapping"
	"bennypowers.dev/kiln/message"
)

// countingSink forwards messages and counts the errors among them.
type countingSink struct {
	message.Sink
	errors atomic.Int32
}

func (s *countingSink) Process(m message.Message) {
	if m.Kind == message.Error {
		s.errors.Add(1)
	}
	s.Sink.Process(m)
}

// cycle is one incremental build of one artifact.
type cycle struct {
	engine   *Engine
	artifact *artifact.Artifact
	store    *mapping.Store
	sink     *countingSink
	report   *ArtifactReport
	plan     *Plan

	// removed holds outputs deleted this cycle; undeletable those that
	// could not be.
	removed     map[string]bool
	undeletable map[string]bool

	// archives maps archive path -> archive queued for a rewrite.
	archives map[string]*artifact.ArchiveInfo
}

func (c *cycle) progress(text string) {
	c.sink.Process(message.Message{Kind: message.Progress, Artifact: c.artifact.Name, Text: text})
}

// buildArtifact runs one cycle for a. The artifact is marked up to date
// only when every phase succeeded; otherwise the scheduled work is handed
// back to the tracker and whatever was finished is saved.
func (e *Engine) buildArtifact(ctx context.Context, a *artifact.Artifact) (*ArtifactReport, error) {
	report := &ArtifactReport{Name: a.Name}
	stampsPath := e.StampsPath(a.Name)
	if err := e.tracker.EnsureInitialized(a, stampsPath); err != nil {
		return report, err
	}
	store, err := e.LoadMapping(a.Name)
	if err != nil {
		return report, err
	}

	snap := Snapshot{
		Deleted: e.tracker.GetAndClearDeletedPaths(a.Name),
		Changed: e.tracker.SourcesToRecompile(a.Name),
	}
	if snap.Empty() {
		e.tracker.MarkUpToDate(a.Name)
		report.Status = StatusUpToDate
		return report, nil
	}

	c := &cycle{
		engine:      e,
		artifact:    a,
		store:       store,
		sink:        &countingSink{Sink: e.sink},
		report:      report,
		removed:     make(map[string]bool),
		undeletable: make(map[string]bool),
		archives:    make(map[string]*artifact.ArchiveInfo),
	}
	c.progress(fmt.Sprintf("Building artifact '%s'...", a.Name))

	c.plan = Propagate(store, snap)
	Invalidate(store, snap, c.plan)

	err = c.run(ctx)
	if err == nil && c.sink.errors.Load() > 0 {
		err = errors.New("errors were reported while building")
	}
	if err != nil {
		c.requeue()
		return report, errors.Join(err, c.save())
	}

	e.tracker.MarkUpToDate(a.Name)
	report.Status = StatusBuilt
	return report, c.save()
}

func (c *cycle) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		c.requeueDeletions(c.plan.ToDelete.Outputs())
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	c.deleteOutdated(c.plan.ToDelete)
	if err := c.walk(ctx); err != nil {
		return err
	}
	c.sweepOrphans()
	return c.dispatch(ctx)
}

// requeue hands everything this cycle was asked to do back to the tracker
// and repairs the store so it can be saved: changed outputs the replay
// never reached get their old contributors back, and any half-recorded
// link is dropped with its source scheduled again.
func (c *cycle) requeue() {
	for _, root := range c.plan.Roots() {
		for _, source := range c.plan.Sources(root) {
			c.requeueSource(root, source)
		}
	}
	for _, output := range c.plan.ChangedOutputPaths() {
		c.plan.restore(c.store, output)
	}
	for _, source := range c.store.Prune() {
		for _, root := range c.artifact.Roots {
			if root.Covers(source) {
				c.requeueSource(root.Index, source)
			}
		}
	}
}

func (c *cycle) requeueDeletions(outputs []string) {
	for _, output := range outputs {
		c.requeueDeleted(c.plan.ToDelete.SourcesOf(output))
	}
}

// requeueSource marks source dirty again, or deleted when it is gone.
func (c *cycle) requeueSource(root int, source string) {
	if err := c.engine.tracker.MarkDirty(c.artifact.Name, root, source); err != nil {
		c.engine.tracker.RegisterDeleted(c.artifact.Name, source)
	}
}

func (c *cycle) save() error {
	name := c.artifact.Name
	var errs []error
	if err := c.store.Save(c.engine.fsys, c.engine.MappingPath(name)); err != nil {
		errs = append(errs, err)
	}
	if err := c.engine.tracker.Save(name, c.engine.StampsPath(name)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
