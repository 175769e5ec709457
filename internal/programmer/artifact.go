package programmer

import (
	"bufio"
	"fmt"
	"os"
)

// writeLines writes each line to path with a trailing newline, truncating
// any previous content. Both run artifacts (the generated script and the
// captured toolchain output) are written this way; they exist for human
// post-mortem inspection and are never read back.
func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
