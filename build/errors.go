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
	"errors"
	"fmt"
)

var (
	// ErrCanceled reports a build stopped by context cancellation.
	ErrCanceled = errors.New("build canceled")

	// ErrSequenceAborted reports that an artifact error stopped every
	// artifact after it.
	ErrSequenceAborted = errors.New("artifact sequence aborted")

	// ErrNoOutputPath marks an artifact without an output path.
	ErrNoOutputPath = errors.New("output path is not specified")

	// ErrIncludedFailed marks an artifact skipped because an artifact it
	// includes failed.
	ErrIncludedFailed = errors.New("included artifact failed")
)

// ArtifactError ties a build failure to the artifact it happened in.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %q: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }
