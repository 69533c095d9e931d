package cliout

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/adbpush/internal/bytesize"
	"github.com/marmos91/adbpush/internal/logger"
)

// ProgressRenderer turns the install workflow's progress-sink strings into
// terminal output, overwriting the current line on a TTY instead of
// scrolling, the same isTerminal check the logger package uses to decide
// on colorized output.
type ProgressRenderer struct {
	out      io.Writer
	isTTY    bool
	lastLine string
}

// NewProgressRenderer creates a renderer writing to out. TTY-ness is probed
// via fd when out is *os.File; any other writer (a pipe, a buffer in
// tests) renders one line per update instead of overwriting in place.
func NewProgressRenderer(out io.Writer) *ProgressRenderer {
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = logger.IsTerminal(f.Fd())
	}
	return &ProgressRenderer{out: out, isTTY: isTTY}
}

// Line renders one progress-sink string. On a TTY it carriage-returns over
// the previous line; otherwise it appends a newline, matching how build
// tools fall back to plain scrolling output when redirected to a file.
func (r *ProgressRenderer) Line(line string) {
	if r.isTTY {
		pad := len(r.lastLine) - len(line)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(r.out, "\r%s%*s", line, pad, "")
		r.lastLine = line
		return
	}
	fmt.Fprintln(r.out, line)
}

// Done finalizes progress rendering, moving past the in-place line (if
// any) so subsequent output starts on its own line.
func (r *ProgressRenderer) Done() {
	if r.isTTY && r.lastLine != "" {
		fmt.Fprintln(r.out)
		r.lastLine = ""
	}
}

// FormatBytesProgress renders a "sent/total" byte-progress line using
// bytesize's human-readable formatting, e.g. "3.00MiB / 10.00MiB (30%)".
func FormatBytesProgress(sent, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s sent", bytesize.ByteSize(sent))
	}
	percent := 100 * sent / total
	return fmt.Sprintf("%s / %s (%d%%)", bytesize.ByteSize(sent), bytesize.ByteSize(total), percent)
}
