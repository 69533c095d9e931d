// Package cliout renders adbpush CLI output: plain progress lines for
// interactive use, or a single JSON document for scripting.
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how command results are rendered.
type Format string

const (
	// FormatText prints human-readable lines (the default).
	FormatText Format = "text"
	// FormatJSON prints a single JSON document.
	FormatJSON Format = "json"
)

// ParseFormat parses s into a Format, defaulting to FormatText for "".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: text, json)", s)
	}
}

// Printer renders progress lines and a final result to a writer.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer writing to out in the given format.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Format returns the printer's configured format.
func (p *Printer) Format() Format {
	return p.format
}

// Progress prints a progress-sink line. JSON mode suppresses progress
// chatter; callers should render progress only in text mode.
func (p *Printer) Progress(line string) {
	if p.format == FormatJSON {
		return
	}
	_, _ = fmt.Fprintln(p.out, line)
}

// Result prints the final structured result of a command: as JSON in
// FormatJSON, or by calling data's String() method (if it implements
// fmt.Stringer) in FormatText.
func (p *Printer) Result(data any) error {
	if p.format == FormatJSON {
		encoder := json.NewEncoder(p.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
	if s, ok := data.(fmt.Stringer); ok {
		_, err := fmt.Fprintln(p.out, s.String())
		return err
	}
	_, err := fmt.Fprintf(p.out, "%v\n", data)
	return err
}

// Success prints a success message, colorized green on a TTY.
func (p *Printer) Success(msg string) {
	p.colored(msg, "\033[32m")
}

// Error prints an error message, colorized red on a TTY.
func (p *Printer) Error(msg string) {
	p.colored(msg, "\033[31m")
}

// Warning prints a warning message, colorized yellow on a TTY.
func (p *Printer) Warning(msg string) {
	p.colored(msg, "\033[33m")
}

func (p *Printer) colored(msg, color string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s\033[0m\n", color, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
