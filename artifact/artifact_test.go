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
package artifact_test

import (
	"slices"
	"testing"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/internal/mapfs"
)

func exploded(index int, source, pattern, dir string) *artifact.RootDescriptor {
	return &artifact.RootDescriptor{
		Index:       index,
		Artifact:    "a",
		Source:      source,
		Pattern:     pattern,
		Destination: artifact.Destination{Kind: artifact.Exploded, Dir: dir},
	}
}

func TestRelative(t *testing.T) {
	tests := []struct {
		name    string
		root    *artifact.RootDescriptor
		path    string
		want    string
		covered bool
	}{
		{"file in dir", exploded(0, "/src", "", "/out"), "/src/a/b.css", "a/b.css", true},
		{"root itself is a file", exploded(0, "/src/x.jar", "", "/out"), "/src/x.jar", "x.jar", true},
		{"outside", exploded(0, "/src", "", "/out"), "/srcs/a.css", "", false},
		{"pattern match", exploded(0, "/src", "**/*.css", "/out"), "/src/a/b.css", "a/b.css", true},
		{"pattern miss", exploded(0, "/src", "**/*.css", "/out"), "/src/a/b.txt", "", false},
		{"brace pattern", exploded(0, "/src", "*.{css,png}", "/out"), "/src/logo.png", "logo.png", true},
		{"unclean path", exploded(0, "/src", "", "/out"), "/src/a/../b.css", "b.css", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.root.Relative(tt.path)
			if ok != tt.covered || got != tt.want {
				t.Errorf("Relative(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.covered)
			}
		})
	}
}

func TestDestinationPaths(t *testing.T) {
	ex := artifact.Destination{Kind: artifact.Exploded, Dir: "/out/static"}
	if got := ex.OutputPath("css/a.css"); got != "/out/static/css/a.css" {
		t.Errorf("Unexpected exploded output %q", got)
	}

	jar := &artifact.ArchiveInfo{Path: "/out/app.jar"}
	entry := artifact.Destination{Kind: artifact.ArchiveEntry, Dir: "classes", Archive: jar}
	if got := entry.OutputPath("p/A.class"); got != "/out/app.jar" {
		t.Errorf("Expected archive entries to map to the archive, got %q", got)
	}
	if got := entry.EntryName("p/A.class"); got != "classes/p/A.class" {
		t.Errorf("Unexpected entry name %q", got)
	}
	top := artifact.Destination{Kind: artifact.ArchiveEntry, Archive: jar}
	if got := top.EntryName("A.class"); got != "A.class" {
		t.Errorf("Unexpected top-level entry name %q", got)
	}
}

func TestFiles(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/src/b.css", "", 0644)
	mfs.AddFile("/src/a/c.css", "", 0644)
	mfs.AddFile("/src/a/d.txt", "", 0644)
	mfs.AddFile("/other/e.css", "", 0644)

	files, err := exploded(0, "/src", "**/*.css", "/out").Files(mfs)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/src/a/c.css", "/src/b.css"}; !slices.Equal(files, want) {
		t.Errorf("Expected %v, got %v", want, files)
	}

	files, err = exploded(0, "/src/b.css", "", "/out").Files(mfs)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(files, []string{"/src/b.css"}) {
		t.Errorf("Expected single file root, got %v", files)
	}

	files, err = exploded(0, "/missing", "", "/out").Files(mfs)
	if err != nil || len(files) != 0 {
		t.Errorf("Expected missing root to yield nothing, got %v, %v", files, err)
	}
}

func TestValidatePattern(t *testing.T) {
	for _, p := range []string{"", "**/*.css", "*.{a,b}", "dir/**"} {
		if err := artifact.ValidatePattern(p); err != nil {
			t.Errorf("Expected %q to be valid, got %v", p, err)
		}
	}
	if err := artifact.ValidatePattern("[unclosed"); err == nil {
		t.Error("Expected invalid pattern error")
	}
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]artifact.Compression{
		"":        artifact.Deflate,
		"deflate": artifact.Deflate,
		"STORE":   artifact.Store,
		" zstd ":  artifact.Zstd,
	} {
		got, err := artifact.ParseCompression(in)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := artifact.ParseCompression("brotli"); err == nil {
		t.Error("Expected unknown compression error")
	}
}

func TestArchivesAndRootsFor(t *testing.T) {
	jar := &artifact.ArchiveInfo{Path: "/out/app.jar"}
	zip := &artifact.ArchiveInfo{Path: "/out/res.zip"}
	a := &artifact.Artifact{
		Name: "a",
		Roots: []*artifact.RootDescriptor{
			{Index: 0, Source: "/res", Destination: artifact.Destination{Kind: artifact.ArchiveEntry, Archive: zip}},
			{Index: 1, Source: "/static", Destination: artifact.Destination{Kind: artifact.Exploded, Dir: "/out"}},
			{Index: 2, Source: "/classes", Destination: artifact.Destination{Kind: artifact.ArchiveEntry, Archive: jar}},
			{Index: 3, Source: "/more", Destination: artifact.Destination{Kind: artifact.ArchiveEntry, Archive: zip}},
		},
	}

	archives := a.Archives()
	if len(archives) != 2 || archives[0] != zip || archives[1] != jar {
		t.Errorf("Expected zip then jar, got %v", archives)
	}
	var indices []int
	for _, r := range a.RootsFor("/out/res.zip") {
		indices = append(indices, r.Index)
	}
	if !slices.Equal(indices, []int{0, 3}) {
		t.Errorf("Expected roots 0 and 3, got %v", indices)
	}
	if a.Root(2).Source != "/classes" || a.Root(9) != nil {
		t.Error("Unexpected Root lookup")
	}
}

func TestProjectSelect(t *testing.T) {
	p := &artifact.Project{Artifacts: []*artifact.Artifact{{Name: "a"}, {Name: "b"}}}
	all, err := p.Select(nil)
	if err != nil || len(all) != 2 {
		t.Errorf("Expected every artifact, got %v, %v", all, err)
	}
	one, err := p.Select([]string{"b"})
	if err != nil || len(one) != 1 || one[0].Name != "b" {
		t.Errorf("Expected b, got %v, %v", one, err)
	}
	if _, err := p.Select([]string{"c"}); err == nil {
		t.Error("Expected unknown artifact error")
	}
}
