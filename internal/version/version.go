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

// Package version reports which kiln build is running.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = "unknown"
	BuildTime = "unknown"
	GitDirty  = "" // "dirty" for a modified tree
)

// Info describes a kiln binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
	Dirty     string `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
}

// Get collects version information, preferring ldflags and falling back to
// the module and VCS data the go toolchain embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildTime,
		Dirty:     GitDirty,
	}
	bi, ok := debug.ReadBuildInfo()
	if ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "unknown" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = s.Value
				}
			case "vcs.modified":
				if info.Dirty == "" && s.Value == "true" {
					info.Dirty = "dirty"
				}
			}
		}
	}
	if info.Version == "dev" {
		info.Version = fallbackVersion(bi, ok, info.Commit, info.Dirty)
	}
	return info
}

func fallbackVersion(bi *debug.BuildInfo, ok bool, commit, dirty string) string {
	if ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	if GitTag == "unknown" || commit == "unknown" {
		return "dev"
	}
	v := GitTag
	short := commit
	if len(short) > 7 {
		short = short[:7]
	}
	if !strings.HasSuffix(v, short) {
		v = fmt.Sprintf("%s-%s", v, short)
	}
	if dirty == "dirty" {
		v += "-dirty"
	}
	return v
}

// String renders the version with its commit, when known.
func (i Info) String() string {
	if i.Commit == "unknown" || i.Commit == "" {
		return i.Version
	}
	short := i.Commit
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s (commit: %s)", i.Version, short)
}
