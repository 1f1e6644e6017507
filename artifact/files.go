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
package artifact

import (
	"errors"
	iofs "io/fs"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/kiln/fs"
)

// Files lists every file currently under the root that matches its pattern,
// sorted. A missing root yields no files.
func (r *RootDescriptor) Files(fsys fs.FileSystem) ([]string, error) {
	info, err := fsys.Stat(r.Source)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{r.Source}, nil
	}

	var files []string
	err = iofs.WalkDir(fsys, r.Source, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		p = filepath.Clean(p)
		if r.Covers(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// ValidatePattern reports a malformed doublestar pattern.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return doublestar.ErrBadPattern
	}
	return nil
}

func matchPattern(pattern, rel string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}
