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
	"slices"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/message"
)

// Build brings the named artifacts, and every artifact they include, up to
// date. No names builds the whole project.
//
// Artifacts are built included-first. An artifact whose layout includes
// itself, or that has no output path, stops the remaining sequence unless
// IsolateFailures is set, in which case only the artifacts including it are
// skipped. Any other failure is reported and skips the artifacts including
// the failed one. Cancellation stops the sequence without a diagnostic and
// returns ErrCanceled.
func (e *Engine) Build(ctx context.Context, names []string) (*Report, error) {
	selected, err := e.project.Select(names)
	if err != nil {
		return nil, err
	}
	wanted := e.sorter.WithIncluded(selected)
	cyclic := e.sorter.SelfIncluding()

	var order []*artifact.Artifact
	for _, a := range e.sorter.SortedByInclusion() {
		if wanted[a.Name] {
			order = append(order, a)
		}
	}

	report := &Report{}
	failed := make(map[string]bool)
	var errs []error

	for i, a := range order {
		if ctx.Err() != nil {
			report.mark(order[i:], StatusCanceled, "")
			return report, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}

		if err := e.configError(a, cyclic); err != nil {
			e.sink.Process(message.Message{Kind: message.Error, Artifact: a.Name, Text: err.Error()})
			report.add(a.Name, StatusFailed, err.Error())
			if !e.opts.IsolateFailures {
				report.mark(order[i+1:], StatusSkipped, ErrSequenceAborted.Error())
				return report, errors.Join(append(errs,
					fmt.Errorf("%w: %w", ErrSequenceAborted, &ArtifactError{Artifact: a.Name, Err: err}))...)
			}
			failed[a.Name] = true
			errs = append(errs, &ArtifactError{Artifact: a.Name, Err: err})
			continue
		}

		if dep := e.failedInclude(a, failed); dep != "" {
			failed[a.Name] = true
			report.add(a.Name, StatusSkipped, fmt.Sprintf("%s: %s", ErrIncludedFailed, dep))
			continue
		}

		ar, err := e.buildArtifact(ctx, a)
		report.Artifacts = append(report.Artifacts, ar)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCanceled) {
			ar.Status = StatusCanceled
			report.mark(order[i+1:], StatusCanceled, "")
			return report, err
		}
		failed[a.Name] = true
		ar.Status = StatusFailed
		ar.Error = err.Error()
		e.sink.Process(message.Message{
			Kind:     message.Error,
			Artifact: a.Name,
			Text:     fmt.Sprintf("Cannot build '%s' artifact: %v", a.Name, err),
		})
		errs = append(errs, &ArtifactError{Artifact: a.Name, Err: err})
	}
	return report, errors.Join(errs...)
}

// configError reports an artifact that cannot be built at all. Its text is
// the diagnostic shown to the user.
func (e *Engine) configError(a *artifact.Artifact, cyclic map[string]*artifact.Artifact) error {
	if culprit, ok := cyclic[a.Name]; ok {
		if culprit.Name == a.Name {
			return &diagnostic{
				text: fmt.Sprintf("Cannot build '%s' artifact: it includes itself in the output layout", a.Name),
				err:  artifact.ErrCycle,
			}
		}
		return &diagnostic{
			text: fmt.Sprintf("Cannot build '%s' artifact: '%s' artifact includes itself in the output layout", a.Name, culprit.Name),
			err:  artifact.ErrCycle,
		}
	}
	if a.OutputPath == "" {
		return &diagnostic{
			text: fmt.Sprintf("Cannot build '%s' artifact: output path is not specified", a.Name),
			err:  ErrNoOutputPath,
		}
	}
	return nil
}

type diagnostic struct {
	text string
	err  error
}

func (d *diagnostic) Error() string { return d.text }
func (d *diagnostic) Unwrap() error { return d.err }

func (e *Engine) failedInclude(a *artifact.Artifact, failed map[string]bool) string {
	deps := e.sorter.Included(a.Name)
	i := slices.IndexFunc(deps, func(name string) bool { return failed[name] })
	if i < 0 {
		return ""
	}
	return deps[i]
}

func (r *Report) add(name string, status Status, reason string) {
	r.Artifacts = append(r.Artifacts, &ArtifactReport{Name: name, Status: status, Error: reason})
}

func (r *Report) mark(rest []*artifact.Artifact, status Status, reason string) {
	for _, a := range rest {
		r.add(a.Name, status, reason)
	}
}
