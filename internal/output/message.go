package output

import (
	"fmt"
	"io"
)

// Notice prefixes for status lines printed after a command's result.
const (
	warnPrefix    = "⚠️  "
	successPrefix = "✅ "
)

// Warnf writes a warning status line to w.
func Warnf(w io.Writer, format string, args ...any) {
	notice(w, warnPrefix, format, args...)
}

// Successf writes a success status line to w.
func Successf(w io.Writer, format string, args ...any) {
	notice(w, successPrefix, format, args...)
}

//nolint:errcheck // status lines on the terminal are best effort
func notice(w io.Writer, prefix, format string, args ...any) {
	fmt.Fprintf(w, prefix+format+"\n", args...)
}
