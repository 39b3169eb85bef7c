package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/launcher"
)

// launchOptions carries the launch flags
type launchOptions struct {
	executable string
	args       []string // Passed through to the crawl/resume subcommand
	logDir     string
	yes        bool
	foreground bool
	resume     bool
	now        time.Time
}

// runLaunch handles the launch subcommand
func runLaunch(args []string) {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	logDir := fs.String("log-dir", "./logs", "Directory for the background run's stdout/stderr logs")
	yes := fs.Bool("yes", false, "Skip the prompts and start in the background")
	foreground := fs.Bool("foreground", false, "With -yes, stay attached to this terminal instead")
	resume := fs.Bool("resume", false, "Launch 'resume' instead of 'crawl'")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: link-auditor launch [options] [-- crawl options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  link-auditor launch -- -config config.yaml\n")
		fmt.Fprintf(os.Stderr, "  link-auditor launch -yes -log-dir /var/log/link-auditor -- -config config.yaml -persist\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*yes && !launcher.IsInteractive(os.Stdin) {
		fmt.Fprintln(os.Stderr, "Error: stdin is not a terminal; pass -yes to launch without prompts")
		os.Exit(1)
	}

	executable, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: locate executable: %v\n", err)
		os.Exit(1)
	}

	os.Exit(doLaunch(launchOptions{
		executable: executable,
		args:       fs.Args(),
		logDir:     *logDir,
		yes:        *yes,
		foreground: *foreground,
		resume:     *resume,
		now:        time.Now(),
	}, os.Stdin, os.Stdout))
}

// doLaunch asks how to run the crawl, then starts it.
// Returns exit code; an attached run passes its child's code through.
func doLaunch(opts launchOptions, in io.Reader, out io.Writer) int {
	subcommand := "crawl"
	if opts.resume {
		subcommand = "resume"
	}
	childArgs := append([]string{subcommand}, opts.args...)

	prompter := launcher.NewPrompter(in, out)
	detached := !opts.foreground
	if !opts.yes {
		background, err := prompter.Confirm("Run in background?", true)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		detached = background
	}

	logs := launcher.LogPaths(opts.logDir, opts.now)
	fmt.Fprintf(out, "Command: %s %s\n", opts.executable, strings.Join(childArgs, " "))
	if detached {
		fmt.Fprintf(out, "Stdout:  %s\nStderr:  %s\n", logs.Stdout, logs.Stderr)
	} else {
		fmt.Fprintln(out, "Mode:    foreground")
	}

	if !opts.yes {
		confirmed, err := prompter.Confirm("Confirm?", false)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		if !confirmed {
			fmt.Fprintln(out, "Aborted.")
			return 0
		}
	}

	proc, err := launcher.Start(launcher.Options{
		Executable: opts.executable,
		Args:       childArgs,
		Detached:   detached,
		Logs:       logs,
	})
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	if detached {
		fmt.Fprintf(out, "Started in the background (PID %d)\n", proc.PID)
		return 0
	}

	if err := proc.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
	return 0
}
