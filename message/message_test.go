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
package message_test

import (
	"bytes"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"bennypowers.dev/kiln/message"
)

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sink := message.NewLogSink(logger)

	sink.Process(message.Message{Kind: message.Progress, Artifact: "web", Text: "Building artifact 'web'..."})
	sink.Process(message.Message{Kind: message.Warning, Artifact: "web", Text: "Cannot delete /out/a"})
	sink.Process(message.Message{Kind: message.Error, Text: "boom"})
	sink.FileDeleted("/out/b")

	out := buf.String()
	if strings.Contains(out, "Building artifact") {
		t.Errorf("Expected progress to be filtered at warn level, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "artifact=web") {
		t.Errorf("Expected a warning with the artifact attribute, got %q", out)
	}
	if !strings.Contains(out, "level=ERROR msg=boom") {
		t.Errorf("Expected an error line, got %q", out)
	}
	if strings.Contains(out, "/out/b") {
		t.Errorf("Expected deletions to log at debug, got %q", out)
	}
}

func TestCollector(t *testing.T) {
	var c message.Collector
	c.Process(message.Message{Kind: message.Progress, Text: "p"})
	c.Process(message.Message{Kind: message.Warning, Text: "w"})
	c.Process(message.Message{Kind: message.Error, Text: "e"})
	c.FileDeleted("/out/x")

	if got := len(c.Messages()); got != 3 {
		t.Errorf("Expected 3 messages, got %d", got)
	}
	problems := c.Messages(message.Warning, message.Error)
	if len(problems) != 2 || problems[0].Text != "w" || problems[1].Text != "e" {
		t.Errorf("Unexpected filtered messages %v", problems)
	}
	if !slices.Equal(c.Deleted(), []string{"/out/x"}) {
		t.Errorf("Unexpected deletions %v", c.Deleted())
	}

	c.Reset()
	if len(c.Messages()) != 0 || len(c.Deleted()) != 0 {
		t.Error("Expected Reset to forget everything")
	}
}

func TestTee(t *testing.T) {
	var a, b message.Collector
	tee := message.Tee{&a, &b}
	tee.Process(message.Message{Kind: message.Info, Text: "hi"})
	tee.FileDeleted("/out/y")
	for _, c := range []*message.Collector{&a, &b} {
		if len(c.Messages()) != 1 || len(c.Deleted()) != 1 {
			t.Errorf("Expected every sink to receive everything, got %v %v", c.Messages(), c.Deleted())
		}
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[message.Kind]string{
		message.Progress: "progress",
		message.Info:     "info",
		message.Warning:  "warning",
		message.Error:    "error",
		message.Kind(9):  "kind(9)",
	} {
		if got := k.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
