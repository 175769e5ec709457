// Package bitload holds shared metadata for the bitload tool.
package bitload

// Version is the tool version reported by bitload -version.
const Version = "0.3.0"
