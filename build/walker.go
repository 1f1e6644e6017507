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
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/mapping"
)

// walk replays the scheduled sources through the layout, root by root in
// index order. Exploded files are copied now; archive entries only mark
// their archive changed.
func (c *cycle) walk(ctx context.Context) error {
	for _, index := range c.plan.Roots() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		root := c.artifact.Root(index)
		if root == nil {
			// The layout lost this root; its outputs are swept as orphans.
			continue
		}
		for _, source := range c.plan.Sources(index) {
			rel, ok := root.Relative(source)
			if !ok {
				c.unlinkChanged(source)
				continue
			}
			switch root.Destination.Kind {
			case artifact.Exploded:
				if err := c.copyExploded(root, source, rel); err != nil {
					return err
				}
			case artifact.ArchiveEntry:
				c.markArchive(root.Destination.Archive)
			}
		}
	}
	return nil
}

// unlinkChanged drops the links from a source its root no longer covers to
// the changed outputs, whose contributor records were cleared.
func (c *cycle) unlinkChanged(source string) {
	for _, output := range c.store.Outputs(source) {
		if c.plan.ChangedOutputs[output] {
			c.store.RemoveOutputOf(source, output)
		}
	}
}

// copyExploded writes source to its exploded output unless another source
// of an earlier root already owns that output, in which case source is only
// recorded as a further contributor.
func (c *cycle) copyExploded(root *artifact.RootDescriptor, source, rel string) error {
	output := root.Destination.OutputPath(rel)
	self := mapping.Contributor{Source: source, Root: root.Index}

	contributors, _ := c.store.Contributors(output)
	if len(contributors) == 0 || contributors[0].Source == source {
		if err := c.copyFile(source, output); err != nil {
			return fmt.Errorf("copying %s to %s: %w", source, output, err)
		}
	}
	c.store.AppendContributor(output, self)
	c.store.AddOutput(source, output)
	return nil
}

func (c *cycle) copyFile(source, output string) error {
	fsys := c.engine.fsys
	info, err := fsys.Stat(source)
	if err != nil {
		return err
	}
	data, err := fsys.ReadFile(source)
	if err != nil {
		return err
	}
	if err := fs.WriteFileAtomic(fsys, output, data, info.Mode().Perm()); err != nil {
		return err
	}
	c.report.Copied++
	return nil
}

// markArchive flags an archive for a full rewrite. An archive the store has
// never seen gets an empty contributor record until the writer fills it.
func (c *cycle) markArchive(info *artifact.ArchiveInfo) {
	if _, ok := c.store.Contributors(info.Path); !ok {
		c.store.SetContributors(info.Path, nil)
	}
	c.archives[info.Path] = info
}
