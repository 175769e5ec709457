// Package script performs macro substitution on programming scripts.
//
// A macro is a recognized placeholder token of the form %keyword%. The
// only recognized token is %file%, which stands for the bitstream path.
package script

import "strings"

// FileToken is the placeholder replaced with the bitstream file path.
const FileToken = "%file%"

// Substitute returns a copy of lines where the first occurrence of
// FileToken in each line is replaced by bitstream. Later occurrences on
// the same line and lines without the token pass through unchanged.
func Substitute(lines []string, bitstream string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.Replace(line, FileToken, bitstream, 1)
	}
	return out
}
