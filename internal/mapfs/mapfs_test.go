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
package mapfs_test

import (
	"errors"
	"io/fs"
	"os"
	"testing"

	"bennypowers.dev/kiln/internal/mapfs"
)

func TestRenameErrors(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/a/tmp", "x", 0644)
	mfs.FailWrite("/a/file")

	tests := []struct {
		name     string
		old, new string
		want     error
	}{
		{"missing source", "/a/none", "/a/other", fs.ErrNotExist},
		{"failing target", "/a/tmp", "/a/file", fs.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mfs.Rename(tt.old, tt.new)
			var linkErr *os.LinkError
			if !errors.As(err, &linkErr) || linkErr.Op != "rename" {
				t.Fatalf("Expected a rename LinkError, got %v", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := mfs.Rename("/a/tmp", "/a/moved"); err != nil {
		t.Fatal(err)
	}
	if data, err := mfs.ReadFile("/a/moved"); err != nil || string(data) != "x" {
		t.Errorf("Expected the renamed content, got %q, %v", data, err)
	}
}
