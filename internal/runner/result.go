package runner

// Result holds the captured output of a command execution.
type Result struct {
	RunID     string   // unique identifier for this run
	ExitCode  int      // process exit code
	Lines     []string // combined stdout/stderr, in production order
	Truncated bool     // true if output exceeded the size cap
}

// Launched reports whether the child process produced any output at all.
// A command that could not be spawned yields an empty Result, so callers
// must judge plausibility of short output rather than trust zero lines.
func (r *Result) Launched() bool {
	return len(r.Lines) > 0
}
