package programmer

import "fmt"

// BusyError reports that another run holds the temp-directory lock.
type BusyError struct {
	Dir string
}

func (e BusyError) Error() string {
	return fmt.Sprintf("another bitload run is active in %s", e.Dir)
}

// WriteError reports a failure to create or write a file.
type WriteError struct {
	Path string
	Err  error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("can't write %s: %v", e.Path, e.Err)
}

func (e WriteError) Unwrap() error { return e.Err }

// LaunchError reports that the toolchain executable could not be started.
// It is inferred from implausibly short output, since a spawn failure and
// an instantly-dying binary are indistinguishable to the caller.
type LaunchError struct {
	Tool string
}

func (e LaunchError) Error() string {
	return fmt.Sprintf("can't run %s", e.Tool)
}

// ToolchainError reports an error line emitted by the toolchain,
// carried verbatim.
type ToolchainError struct {
	Line string
}

func (e ToolchainError) Error() string {
	return fmt.Sprintf("vivado reports '%s'", e.Line)
}
