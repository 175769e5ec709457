// Package runner executes external commands and captures their combined
// output as an ordered sequence of text lines.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner executes commands, capturing stdout and stderr interleaved.
type Runner struct {
	Timeout   time.Duration // zero means no deadline
	MaxOutput int           // capture cap in bytes; zero means unlimited
}

// Run executes a command with the given argv. The first element is the
// binary path or name (resolved via PATH), the rest are arguments.
//
// Stdout and stderr share a single buffer, so lines appear in the order
// the child produced them. If the process cannot be spawned at all, Run
// returns a Result with no lines rather than an error; callers must
// treat implausibly short output as a launch failure.
func (r *Runner) Run(ctx context.Context, argv []string) *Result {
	res := &Result{RunID: uuid.New().String()}
	if len(argv) == 0 {
		return res
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 1 << 30
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var out bytes.Buffer
	w := &limitWriter{buf: &out, limit: maxOutput}
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()

	res.Truncated = out.Len() >= maxOutput

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// Binary not found or other exec error: no output.
			return res
		}
	}

	res.Lines = splitLines(out.Bytes())
	return res
}

// splitLines breaks captured output into lines, stripping trailing
// carriage returns. A trailing newline does not yield a final empty line.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	s := strings.TrimRight(string(b), "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
