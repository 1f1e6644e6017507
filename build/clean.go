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

	"bennypowers.dev/kiln/fs"
)

// Clean deletes every output recorded for the named artifacts together with
// their persisted state, so the next build starts from scratch. No names
// cleans the whole project. Included artifacts are not cleaned unless named.
func (e *Engine) Clean(ctx context.Context, names []string) (*Report, error) {
	selected, err := e.project.Select(names)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	var errs []error
	for _, a := range selected {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		ar := &ArtifactReport{Name: a.Name, Status: StatusCleaned}
		report.Artifacts = append(report.Artifacts, ar)

		store, err := e.LoadMapping(a.Name)
		if err != nil {
			ar.Status, ar.Error = StatusFailed, err.Error()
			errs = append(errs, &ArtifactError{Artifact: a.Name, Err: err})
			continue
		}
		var failures []error
		for _, output := range store.OutputPaths() {
			if err := fs.RemoveFile(e.fsys, output); err != nil {
				failures = append(failures, err)
				continue
			}
			ar.Deleted++
			e.sink.FileDeleted(output)
		}
		if len(failures) > 0 {
			// Keep the state so a later clean or build still knows the
			// outputs that are left.
			err := errors.Join(failures...)
			ar.Status, ar.Error = StatusFailed, err.Error()
			errs = append(errs, &ArtifactError{Artifact: a.Name, Err: err})
			continue
		}
		e.tracker.Clear(a.Name)
		for _, p := range []string{e.MappingPath(a.Name), e.StampsPath(a.Name)} {
			if err := fs.RemoveFile(e.fsys, p); err != nil {
				errs = append(errs, &ArtifactError{Artifact: a.Name, Err: err})
			}
		}
	}
	return report, errors.Join(errs...)
}
