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
package config_test

import (
	"strings"
	"testing"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/internal/mapfs"
)

const project = `
artifacts:
  - name: lib
    output: out/lib
    compression: zstd
    roots:
      - source: src/classes
        pattern: "**/*.class"
        to: { archive: lib.jar }
      - source: src/meta/MANIFEST.MF
        to: { archive: lib.jar, dir: /META-INF/ }
  - name: web
    output: /dist/web
    includes: [lib]
    roots:
      - source: src/static
        to: { dir: static }
      - source: /abs/res
        to: { archive: WEB-INF/res.zip }
`

func TestParseAndResolve(t *testing.T) {
	file, err := config.Parse([]byte(project))
	if err != nil {
		t.Fatal(err)
	}
	p, err := file.Resolve("/work")
	if err != nil {
		t.Fatal(err)
	}
	if p.Dir != "/work" || len(p.Artifacts) != 2 {
		t.Fatalf("Unexpected project %+v", p)
	}

	lib, _ := p.Lookup("lib")
	if lib.OutputPath != "/work/out/lib" {
		t.Errorf("Expected output anchored at the project, got %q", lib.OutputPath)
	}
	if len(lib.Roots) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(lib.Roots))
	}
	classes, manifest := lib.Roots[0], lib.Roots[1]
	if classes.Index != 0 || manifest.Index != 1 || classes.Artifact != "lib" {
		t.Errorf("Unexpected root identity %v, %v", classes, manifest)
	}
	if classes.Source != "/work/src/classes" || classes.Pattern != "**/*.class" {
		t.Errorf("Unexpected classes root %+v", classes)
	}
	if classes.Destination.Archive != manifest.Destination.Archive {
		t.Error("Expected roots into the same archive to share one ArchiveInfo")
	}
	jar := classes.Destination.Archive
	if jar.Path != "/work/out/lib/lib.jar" || jar.Compression != artifact.Zstd {
		t.Errorf("Unexpected archive %+v", jar)
	}
	if manifest.Destination.Dir != "META-INF" || classes.Destination.Dir != "" {
		t.Errorf("Expected normalized entry dirs, got %q and %q", manifest.Destination.Dir, classes.Destination.Dir)
	}

	web, _ := p.Lookup("web")
	if web.OutputPath != "/dist/web" {
		t.Errorf("Expected absolute output to be kept, got %q", web.OutputPath)
	}
	static := web.Roots[0]
	if static.Destination.Kind != artifact.Exploded || static.Destination.Dir != "/dist/web/static" {
		t.Errorf("Unexpected exploded destination %+v", static.Destination)
	}
	res := web.Roots[1]
	if res.Source != "/abs/res" || res.Destination.Archive.Path != "/dist/web/WEB-INF/res.zip" {
		t.Errorf("Unexpected archive root %+v", res)
	}
	if res.Destination.Archive.Compression != artifact.Deflate {
		t.Errorf("Expected default compression, got %q", res.Destination.Archive.Compression)
	}
	if len(web.Includes) != 1 || web.Includes[0] != "lib" {
		t.Errorf("Unexpected includes %v", web.Includes)
	}
}

func TestMissingOutputStillLoads(t *testing.T) {
	file, err := config.Parse([]byte("artifacts:\n  - name: bare\n"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := file.Resolve("/work")
	if err != nil {
		t.Fatal(err)
	}
	if a, ok := p.Lookup("bare"); !ok || a.OutputPath != "" {
		t.Errorf("Expected bare artifact without output, got %+v", a)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "artifacts:\n  - output: out\n",
			want: "name is required",
		},
		{
			name: "duplicate name",
			yaml: "artifacts:\n  - name: a\n  - name: a\n",
			want: "declared twice",
		},
		{
			name: "unknown include",
			yaml: "artifacts:\n  - name: a\n    includes: [ghost]\n",
			want: "includes unknown artifact \"ghost\"",
		},
		{
			name: "bad pattern",
			yaml: "artifacts:\n  - name: a\n    roots:\n      - source: src\n        pattern: \"[oops\"\n",
			want: "pattern",
		},
		{
			name: "bad compression",
			yaml: "artifacts:\n  - name: a\n    compression: rar\n",
			want: "unknown compression",
		},
		{
			name: "missing source",
			yaml: "artifacts:\n  - name: a\n    roots:\n      - to: { dir: x }\n",
			want: "source is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := config.Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			_, err = file.Resolve("/work")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := config.Parse([]byte("artifacts: [\n")); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestLoad(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/work/kiln.yaml", project, 0644)
	p, err := config.Load(mfs, "/work/kiln.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if p.Dir != "/work" {
		t.Errorf("Expected the file's directory, got %q", p.Dir)
	}

	if _, err := config.Load(mfs, "/work/missing.yaml"); err == nil {
		t.Error("Expected a missing file error")
	}
}
