// Package launcher starts a crawl as a child process, attached to the terminal
// or detached with its output appended to timestamped log files.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// ErrDetached is returned by Wait on a process that was started detached
var ErrDetached = errors.New("process is detached")

// Paths are the log files a detached crawl writes to
type Paths struct {
	Stdout string
	Stderr string
}

// LogPaths names the log files for a run started at now, e.g.
// <dir>/2026-03-01-10-00-out.log. The timestamp is UTC, to the minute.
func LogPaths(dir string, now time.Time) Paths {
	stamp := now.UTC().Format("2006-01-02-15-04")
	return Paths{
		Stdout: filepath.Join(dir, stamp+"-out.log"),
		Stderr: filepath.Join(dir, stamp+"-err.log"),
	}
}

// Options configures Start
type Options struct {
	Executable string
	Args       []string
	Dir        string   // Working directory; empty means the current one
	Env        []string // nil means the parent's environment
	Detached   bool
	Logs       Paths // Used only when Detached
}

// Process is a started crawl
type Process struct {
	PID      int
	Detached bool
	cmd      *exec.Cmd
}

// Start spawns the crawl. Attached processes share the parent's stdio.
// Detached processes get their own session, no stdin, and append stdout and
// stderr to opts.Logs, so they keep running after the parent exits.
func Start(opts Options) (*Process, error) {
	if opts.Executable == "" {
		return nil, errors.New("launcher: executable is required")
	}

	cmd := exec.Command(opts.Executable, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	var logFiles []*os.File
	defer func() {
		for _, f := range logFiles {
			f.Close()
		}
	}()

	if opts.Detached {
		for _, path := range []string{opts.Logs.Stdout, opts.Logs.Stderr} {
			f, err := openAppend(path)
			if err != nil {
				return nil, err
			}
			logFiles = append(logFiles, f)
		}
		cmd.Stdout = logFiles[0]
		cmd.Stderr = logFiles[1]
		detach(cmd)
	} else {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launcher: start %s: %w", opts.Executable, err)
	}

	p := &Process{PID: cmd.Process.Pid, Detached: opts.Detached, cmd: cmd}
	if opts.Detached {
		if err := cmd.Process.Release(); err != nil {
			return p, fmt.Errorf("launcher: release pid %d: %w", p.PID, err)
		}
	}
	return p, nil
}

// Wait blocks until an attached process exits
func (p *Process) Wait() error {
	if p.Detached {
		return ErrDetached
	}
	return p.cmd.Wait()
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: create log directory for '%s': %w", utils.ErrFilesystem, path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open log file '%s': %w", utils.ErrFilesystem, path, err)
	}
	return f, nil
}
