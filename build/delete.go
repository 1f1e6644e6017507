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
	"fmt"
	"slices"

	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/message"
)

// MaxUndeletable is how many distinct outputs may fail to delete before a
// deletion pass gives up.
const MaxUndeletable = 50

// deleteOutdated removes the candidate outputs. A removed output is
// dropped from both relations; an output that cannot be removed keeps its
// store entries and its deleted sources are registered again, so the next
// cycle retries it. Once more than MaxUndeletable outputs have failed the
// pass stops and leaves the rest for the next cycle.
func (c *cycle) deleteOutdated(candidates *Candidates) {
	if candidates.Len() == 0 {
		return
	}
	c.progress("Deleting outdated files...")

	failures := 0
	outputs := candidates.Outputs()
	for i, output := range outputs {
		if c.undeletable[output] {
			continue
		}
		if !c.removeOutput(output) {
			c.undeletable[output] = true
			c.keepContributors(output, candidates.SourcesOf(output))
			c.requeueDeleted(candidates.SourcesOf(output))
			failures++
			if failures > MaxUndeletable {
				c.warn("Deletion of outdated files stopped because too many files cannot be deleted")
				for _, rest := range outputs[i+1:] {
					c.keepContributors(rest, candidates.SourcesOf(rest))
					c.requeueDeleted(candidates.SourcesOf(rest))
				}
				return
			}
			c.warn(fmt.Sprintf("Cannot delete file '%s'", output))
			continue
		}
		for _, source := range candidates.SourcesOf(output) {
			c.store.RemoveOutputOf(source, output)
		}
	}
}

// removeOutput deletes an output file at most once per cycle and, on
// success, drops its contributor record. A file already gone counts as
// removed.
func (c *cycle) removeOutput(output string) bool {
	if !c.removed[output] {
		if err := fs.RemoveFile(c.engine.fsys, output); err != nil {
			return false
		}
		c.removed[output] = true
		c.report.Deleted++
		c.sink.FileDeleted(output)
	}
	c.store.RemoveOutput(output)
	return true
}

// keepContributors lists the deleted sources of an output that stays on
// disk among its contributors again, in their previous order. They still
// list the output, while invalidation cleared the record of a changed one.
func (c *cycle) keepContributors(output string, sources []string) {
	if !c.plan.ChangedOutputs[output] {
		return
	}
	for _, ct := range c.plan.previous[output] {
		if slices.Contains(sources, ct.Source) {
			c.store.AppendContributor(output, ct)
		}
	}
}

func (c *cycle) requeueDeleted(sources []string) {
	for _, source := range sources {
		c.engine.tracker.RegisterDeleted(c.artifact.Name, source)
	}
}

func (c *cycle) warn(text string) {
	c.sink.Process(message.Message{Kind: message.Warning, Artifact: c.artifact.Name, Text: text})
}
