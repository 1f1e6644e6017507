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

// Package message carries build progress and diagnostics out of the
// engine.
package message

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Kind is the severity of a message.
type Kind int

const (
	Progress Kind = iota
	Info
	Warning
	Error
)

func (k Kind) String() string {
	switch k {
	case Progress:
		return "progress"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one notice from the build.
type Message struct {
	Kind     Kind   `json:"kind"`
	Artifact string `json:"artifact,omitempty"`
	Text     string `json:"text"`
}

// Sink receives build messages.
type Sink interface {
	Process(Message)

	// FileDeleted is called for each output removed by the build.
	FileDeleted(path string)
}

// LogSink writes messages through a slog logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger, or slog.Default when
// logger is nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Process(m Message) {
	level := slog.LevelInfo
	switch m.Kind {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	var attrs []slog.Attr
	if m.Artifact != "" {
		attrs = append(attrs, slog.String("artifact", m.Artifact))
	}
	s.logger.LogAttrs(context.Background(), level, m.Text, attrs...)
}

func (s *LogSink) FileDeleted(path string) {
	s.logger.Debug("file deleted", slog.String("path", path))
}

// Collector records every message, for tests and build reports.
type Collector struct {
	mu       sync.Mutex
	messages []Message
	deleted  []string
}

func (c *Collector) Process(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

func (c *Collector) FileDeleted(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, path)
}

// Messages returns the recorded messages of the given kinds, or all
// messages when no kind is given.
func (c *Collector) Messages(kinds ...Kind) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Message
	for _, m := range c.messages {
		if len(kinds) == 0 || containsKind(kinds, m.Kind) {
			out = append(out, m)
		}
	}
	return out
}

// Deleted returns the paths reported through FileDeleted.
func (c *Collector) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// Reset forgets everything recorded.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.deleted = nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// Tee fans messages out to several sinks.
type Tee []Sink

func (t Tee) Process(m Message) {
	for _, s := range t {
		s.Process(m)
	}
}

func (t Tee) FileDeleted(path string) {
	for _, s := range t {
		s.FileDeleted(path)
	}
}
