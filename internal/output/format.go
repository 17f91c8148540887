// Package output renders linkbridge command results and session events as
// text for terminals or JSON for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Format selects how results are rendered.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatAuto Format = "auto"
)

// Formatter writes results in one format. Writes are serialized so session
// callbacks arriving on different goroutines never interleave.
type Formatter struct {
	mu     sync.Mutex
	format Format
	w      io.Writer
}

// NewFormatter creates a formatter writing to w.
func NewFormatter(format Format, w io.Writer) *Formatter {
	return &Formatter{format: format, w: w}
}

// Format returns the output format.
func (f *Formatter) Format() Format {
	return f.format
}

// IsJSON reports whether results are written as JSON.
func (f *Formatter) IsJSON() bool {
	return f.format == FormatJSON
}

// Print writes a command result: indented JSON, or v on its own line.
func (f *Formatter) Print(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.IsJSON() {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return f.line(v)
}

// Emit writes one entry of an event stream. JSON output is one compact
// document per line so a session can be piped into line-oriented tools.
func (f *Formatter) Emit(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.IsJSON() {
		enc := json.NewEncoder(f.w)
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
	return f.line(v)
}

// Printf writes formatted text.
func (f *Formatter) Printf(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := fmt.Fprintf(f.w, format, args...)
	return err
}

// Println writes a line of text.
func (f *Formatter) Println(args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := fmt.Fprintln(f.w, args...)
	return err
}

func (f *Formatter) line(v any) error {
	var err error
	if s, ok := v.(fmt.Stringer); ok {
		_, err = fmt.Fprintln(f.w, s.String())
	} else {
		_, err = fmt.Fprintln(f.w, v)
	}
	return err
}

// DetectFormat resolves FormatAuto: text when w is a terminal, JSON when it
// is piped or redirected.
func DetectFormat(w io.Writer, explicit Format) Format {
	if explicit != FormatAuto {
		return explicit
	}
	if isTerminal(w) {
		return FormatText
	}
	return FormatJSON
}

// ParseFormat maps a configured or flag value to a Format. Anything
// unrecognized means auto.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText:
		return f
	default:
		return FormatAuto
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.IsTerminal
}
