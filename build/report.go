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
	"strings"
)

// Status is the outcome of one artifact in a build.
type Status string

const (
	StatusUpToDate Status = "up-to-date"
	StatusBuilt    Status = "built"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusCanceled Status = "canceled"
	StatusCleaned  Status = "cleaned"
)

// ArtifactReport summarizes what a build did to one artifact.
type ArtifactReport struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Copied   int    `json:"copied"`
	Deleted  int    `json:"deleted"`
	Archives int    `json:"archives"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes a build, one entry per artifact in build order.
type Report struct {
	Artifacts []*ArtifactReport `json:"artifacts"`
}

// Artifact returns the report entry for name, or nil.
func (r *Report) Artifact(name string) *ArtifactReport {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Count returns how many artifacts ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, a := range r.Artifacts {
		if a.Status == status {
			n++
		}
	}
	return n
}

// String renders the report as one line per artifact.
func (r *Report) String() string {
	var b strings.Builder
	for _, a := range r.Artifacts {
		switch a.Status {
		case StatusBuilt:
			fmt.Fprintf(&b, "%-12s %s: %d copied, %d deleted, %d archives\n",
				a.Status, a.Name, a.Copied, a.Deleted, a.Archives)
		case StatusCleaned:
			fmt.Fprintf(&b, "%-12s %s: %d deleted\n", a.Status, a.Name, a.Deleted)
		case StatusFailed, StatusSkipped:
			if a.Error != "" {
				fmt.Fprintf(&b, "%-12s %s: %s\n", a.Status, a.Name, a.Error)
				continue
			}
			fmt.Fprintf(&b, "%-12s %s\n", a.Status, a.Name)
		default:
			fmt.Fprintf(&b, "%-12s %s\n", a.Status, a.Name)
		}
	}
	return b.String()
}
