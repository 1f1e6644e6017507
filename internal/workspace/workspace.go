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

// Package workspace wires a project file, its persisted state and a build
// engine together for the CLI commands.
package workspace

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"bennypowers.dev/kiln/artifact"
	"bennypowers.dev/kiln/build"
	"bennypowers.dev/kiln/fs"
	"bennypowers.dev/kiln/fsstate"
	"bennypowers.dev/kiln/internal/config"
	"bennypowers.dev/kiln/message"
)

// Workspace is everything one CLI invocation works with.
type Workspace struct {
	FS      fs.FileSystem
	Project *artifact.Project
	State   *fsstate.State
	Engine  *build.Engine
	Logger  *slog.Logger
}

// Options come from the bound flags.
type Options struct {
	ProjectFile string
	StateDir    string
	Jobs        int
	Isolate     bool
	Verbose     bool
}

// FromViper reads the options bound by the root command and subcommands.
func FromViper() Options {
	return Options{
		ProjectFile: viper.GetString("project"),
		StateDir:    viper.GetString("state-dir"),
		Jobs:        viper.GetInt("jobs"),
		Isolate:     viper.GetBool("isolate"),
		Verbose:     viper.GetBool("verbose"),
	}
}

// NewLogger returns the text logger on stderr used by every command.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Open loads the project and prepares an engine over the real filesystem.
func Open(opts Options) (*Workspace, error) {
	return OpenFS(fs.NewOSFileSystem(), opts, NewLogger(opts.Verbose))
}

// OpenFS is Open over any filesystem and logger.
func OpenFS(fsys fs.FileSystem, opts Options, logger *slog.Logger) (*Workspace, error) {
	if opts.ProjectFile == "" {
		opts.ProjectFile = config.DefaultFile
	}
	project, err := config.Load(fsys, opts.ProjectFile)
	if err != nil {
		return nil, err
	}
	stateDir := opts.StateDir
	if stateDir != "" && !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(project.Dir, stateDir)
	}

	state := fsstate.New(fsys)
	engine := build.New(fsys, project, state, message.NewLogSink(logger), build.Options{
		StateDir:        stateDir,
		Jobs:            opts.Jobs,
		IsolateFailures: opts.Isolate,
	})
	return &Workspace{
		FS:      fsys,
		Project: project,
		State:   state,
		Engine:  engine,
		Logger:  logger,
	}, nil
}
