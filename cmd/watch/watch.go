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

// Package watch provides the watch command for kiln.
package watch

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/bridge"
	"bennypowers.dev/kiln/internal/output"
	"bennypowers.dev/kiln/internal/workspace"
)

// Cmd is the watch cobra command.
var Cmd = &cobra.Command{
	Use:   "watch [artifact...]",
	Short: "Rebuild artifacts when their sources change",
	Long: `Build the named artifacts, then watch every source root and rebuild
incrementally after changes settle.`,
	Example: `  kiln watch
  kiln watch web --debounce 500ms`,
	PreRunE: bindFlags,
	RunE:    run,
}

func init() {
	Cmd.Flags().Duration("debounce", 200*time.Millisecond, "Quiet period before rebuilding")
	Cmd.Flags().IntP("jobs", "j", 0, "Archives rewritten in parallel (default: number of CPUs)")
	Cmd.Flags().Bool("isolate", false, "Keep building independent artifacts after a configuration error")
}

// build and watch share flag names, so flags are bound into viper only for
// the command that runs.
func bindFlags(cmd *cobra.Command, args []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func run(cmd *cobra.Command, args []string) error {
	ws, err := workspace.Open(workspace.FromViper())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	index := artifact.NewRootsIndex(ws.Project)
	for _, root := range index.Roots() {
		if err := addRecursive(watcher, watchDir(root)); err != nil {
			ws.Logger.Warn("cannot watch root", slog.String("root", root.Source), slog.String("error", err.Error()))
		}
	}

	w := &session{
		ws:     ws,
		bridge: bridge.New(index, ws.State, ws.Logger),
		names:  args,
	}
	w.rebuild(ctx)
	return w.loop(ctx, watcher, viper.GetDuration("debounce"))
}

type session struct {
	ws     *workspace.Workspace
	bridge *bridge.Bridge
	names  []string

	// rescan is set when a removal may have taken a whole directory with
	// it; the tracker is reset so the next build rescans the roots.
	rescan bool
}

func (s *session) loop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.ws.Logger.Warn("watch error", slog.String("error", err.Error()))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handle(watcher, ev)
			timer.Reset(debounce)
		case <-timer.C:
			s.rebuild(ctx)
		}
	}
}

func (s *session) handle(watcher *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		s.bridge.FilesDeleted([]string{ev.Name})
		s.rescan = true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := addRecursive(watcher, ev.Name); err != nil {
				s.ws.Logger.Debug("cannot watch directory", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			s.rescan = true
			return
		}
		s.bridge.FilesGenerated([]bridge.Generated{{Root: filepath.Dir(ev.Name), Relative: filepath.Base(ev.Name)}})
	}
}

func (s *session) rebuild(ctx context.Context) {
	if s.rescan {
		// Queued events are covered by rescanning every root.
		s.bridge.Discard()
		for _, a := range s.ws.Project.Artifacts {
			s.ws.State.Clear(a.Name)
		}
		s.rescan = false
		s.ws.Logger.Debug("rebuilding after rescan")
	} else {
		s.ws.Logger.Debug("rebuilding", slog.Int("marked", s.bridge.Drain()))
	}

	report, err := s.ws.Engine.Build(ctx, s.names)
	if err := output.Report(s.ws.FS, report, "text"); err != nil {
		s.ws.Logger.Error("cannot write report", slog.String("error", err.Error()))
	}
	if err != nil {
		s.ws.Logger.Error("build failed", slog.String("error", err.Error()))
	}
}

// watchDir returns the directory to watch for a root: the root itself, or
// the directory holding it when the root is a single file.
func watchDir(root *artifact.RootDescriptor) string {
	info, err := os.Stat(root.Source)
	if err != nil || !info.IsDir() {
		return filepath.Dir(root.Source)
	}
	return root.Source
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, iofs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(p)
	})
}
