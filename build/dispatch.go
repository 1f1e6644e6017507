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
	"fmt"

	"bennypowers.dev/kiln/artifact"
)

// sweepOrphans handles changed outputs the replay did not claim again: a
// source that moved out of its root, or a root whose pattern no longer
// matches. An abandoned archive is queued for rewriting, which drops it
// when nothing feeds it any more. An abandoned exploded file is removed; if
// removal fails its old contributors are restored and scheduled again.
func (c *cycle) sweepOrphans() {
	layout := make(map[string]*artifact.ArchiveInfo)
	for _, info := range c.artifact.Archives() {
		layout[info.Path] = info
	}

	for _, output := range c.plan.ChangedOutputPaths() {
		if _, ok := c.store.Contributors(output); ok {
			continue
		}
		if info, ok := layout[output]; ok {
			c.markArchive(info)
			continue
		}
		if !c.undeletable[output] {
			if c.removeOutput(output) {
				c.store.DetachOutput(output)
				continue
			}
			c.undeletable[output] = true
			c.warn(fmt.Sprintf("Cannot delete file '%s'", output))
		}
		if c.plan.restore(c.store, output) {
			contributors, _ := c.store.Contributors(output)
			for _, ct := range contributors {
				c.requeueSource(ct.Root, ct.Source)
			}
		}
	}
}

// dispatch rewrites every changed archive, in layout order.
func (c *cycle) dispatch(ctx context.Context) error {
	if len(c.archives) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	var changed []*artifact.ArchiveInfo
	for _, info := range c.artifact.Archives() {
		if c.archives[info.Path] != nil {
			changed = append(changed, info)
		}
	}
	if err := c.engine.writer.Write(ctx, c.artifact, changed, c.store); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		return err
	}
	c.report.Archives += len(changed)
	return nil
}
