// Package programmer orchestrates loading a bitstream into the FPGA:
// it writes the substituted programming script to disk, drives the
// vendor toolchain in batch mode, persists its output, and scans the
// output for the toolchain's error marker.
package programmer

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gofrs/flock"

	"github.com/hwtools/bitload/internal/config"
	"github.com/hwtools/bitload/internal/runner"
	"github.com/hwtools/bitload/internal/script"
)

// Artifacts produced in the configured temp directory, overwritten on
// every run.
const (
	ScriptFile = "load_bitstream.tcl"
	ResultFile = "load_bitstream.result"
	LockFile   = "load_bitstream.lock"
)

// errorMarker is the first token of a toolchain output line that
// reports a failure.
const errorMarker = "ERROR:"

// minOutputLines is the smallest plausible output of a toolchain that
// actually started. Vivado prints a multi-line banner before any script
// runs, so fewer lines than this means the executable never launched.
const minOutputLines = 3

// CommandRunner executes a command and captures its output.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) *runner.Result
}

// Programmer holds the dependencies for a programming run.
type Programmer struct {
	Config *config.Config
	Runner CommandRunner
}

// Load programs the bitstream at the given path into the FPGA.
// Each step is a hard precondition for the next: acquire the temp-dir
// lock, write the substituted script, run the toolchain, persist its
// output (best-effort), then scan for the error marker.
func (p *Programmer) Load(ctx context.Context, bitstream string) error {
	tmpDir := p.Config.TmpDir
	lock := flock.New(filepath.Join(tmpDir, LockFile))
	held, err := lock.TryLock()
	if err != nil {
		return WriteError{Path: lock.Path(), Err: err}
	}
	if !held {
		return BusyError{Dir: tmpDir}
	}
	defer lock.Unlock()

	lines := script.Substitute(p.Config.Script(), bitstream)
	if len(lines) == 0 {
		return errors.New("programming script is empty")
	}

	scriptPath := filepath.Join(tmpDir, ScriptFile)
	if err := writeLines(scriptPath, lines); err != nil {
		return WriteError{Path: scriptPath, Err: err}
	}

	res := p.Runner.Run(ctx, []string{
		p.Config.Vivado,
		"-nojournal", "-nolog",
		"-mode", "batch",
		"-source", scriptPath,
	})

	// No output (or almost none) means vivado never started.
	if len(res.Lines) < minOutputLines {
		return LaunchError{Tool: p.Config.Vivado}
	}

	// The result file exists purely for post-mortem inspection; losing
	// it must not mask the programming outcome.
	resultPath := filepath.Join(tmpDir, ResultFile)
	if err := writeLines(resultPath, res.Lines); err != nil {
		log.Printf("warning: can't write %s: %v", resultPath, err)
	}

	for _, line := range res.Lines {
		if firstToken(line) == errorMarker {
			return ToolchainError{Line: line}
		}
	}
	return nil
}

// firstToken returns the prefix of line up to the first whitespace rune.
// A line that starts with whitespace has an empty first token, so an
// indented or mid-line ERROR: is never treated as the marker.
func firstToken(line string) string {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line
	}
	return line[:i]
}
