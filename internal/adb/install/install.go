// Package install implements the fixed upload -> pm install -r -> cleanup
// sequence that turns a pushed APK into a running app, reporting each step
// to a progress sink.
package install

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	syncproto "github.com/marmos91/adbpush/internal/adb/sync"
	"github.com/marmos91/adbpush/internal/adberrors"
	"github.com/marmos91/adbpush/internal/admetrics"
	"github.com/marmos91/adbpush/internal/cliout"
	"github.com/marmos91/adbpush/internal/logger"
)

// State is a step in the install workflow's state machine.
type State int

// The install workflow's states, in the order they are entered.
const (
	Idle State = iota
	Uploading
	Installing
	Cleaning
	Done
	Failed
)

// String renders the state's name for progress lines and logging.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Uploading:
		return "Uploading"
	case Installing:
		return "Installing"
	case Cleaning:
		return "Cleaning"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DeviceDir is the fixed device-side staging directory for pushed APKs.
const DeviceDir = "/data/local/tmp"

// StreamOpener abstracts opening a named service stream over a session,
// satisfied by a thin adapter in cmd/adbpush wrapping *session.Session and
// *stream.Stream so this package never needs to import either directly.
type StreamOpener interface {
	OpenStream(service string) (StreamConn, error)
}

// StreamConn is what install needs from an opened stream: flow-controlled
// write/read (for SYNC framing) plus the ability to drain remaining output
// and close.
type StreamConn interface {
	Write([]byte) error
	Read(p []byte) (int, error)
	ReadAll() ([]byte, error)
	Close() error
}

// ProgressSink receives human-readable progress lines, matching §4.7's
// fixed message set.
type ProgressSink func(line string)

// Result carries the workflow's final state and the trimmed shell output
// from the install step, for CLI result rendering.
type Result struct {
	State       State  `json:"state"`
	ShellOutput string `json:"shell_output"`
}

// String implements fmt.Stringer for text-mode CLI output.
func (r Result) String() string {
	if r.State == Done {
		return fmt.Sprintf("Install complete.\n%s", r.ShellOutput)
	}
	return fmt.Sprintf("Install failed at state %s", r.State)
}

// Run drives the full Idle -> Uploading -> Installing -> Cleaning -> Done
// sequence for localPath, installing it via "pm install -r" and cleaning
// up the staged file afterward. Cleanup failures are logged and swallowed,
// per the workflow's fixed error policy. metrics may be nil.
func Run(opener StreamOpener, maxData uint32, localPath string, progress ProgressSink, metrics *admetrics.Metrics) (Result, error) {
	emit := func(line string) {
		if progress != nil {
			progress(line)
		}
	}

	// The device path is always POSIX regardless of the host platform
	// running this client, so join with "path", not "path/filepath".
	devicePath := path.Join(DeviceDir, filepath.Base(localPath))

	emit("Uploading APK...")
	if err := uploadStep(opener, maxData, localPath, devicePath, progress, metrics); err != nil {
		logger.Error("upload step failed", logger.KeyError, err)
		return Result{State: Failed}, err
	}

	emit("Installing APK...")
	output, err := installStep(opener, devicePath)
	if err != nil {
		logger.Error("install step failed", logger.KeyError, err)
		return Result{State: Failed}, err
	}
	emit(output)

	cleanupStep(opener, devicePath)

	emit("Install complete.")
	return Result{State: Done, ShellOutput: output}, nil
}

func uploadStep(opener StreamOpener, maxData uint32, localPath, devicePath string, progress ProgressSink, metrics *admetrics.Metrics) error {
	f, err := os.Open(localPath)
	if err != nil {
		return adberrors.Wrap(adberrors.SyncFailed, "open local file", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return adberrors.Wrap(adberrors.SyncFailed, "stat local file", err)
	}

	conn, err := opener.OpenStream("sync:")
	if err != nil {
		return err
	}
	defer conn.Close()

	var lastSent int64
	syncProgress := func(sent, total int64) {
		metrics.AddBytesSent(sent - lastSent)
		lastSent = sent
		if progress != nil {
			progress(fmt.Sprintf("Uploading: %s", cliout.FormatBytesProgress(sent, total)))
		}
	}

	return syncproto.Upload(conn, f, info.Size(), devicePath, 0o644, maxData, syncProgress)
}

func installStep(opener StreamOpener, devicePath string) (string, error) {
	conn, err := opener.OpenStream(fmt.Sprintf("shell:pm install -r %s", devicePath))
	if err != nil {
		return "", err
	}
	defer conn.Close()

	out, err := conn.ReadAll()
	if err != nil && !isStreamClosed(err) {
		return "", err
	}

	return strings.TrimSpace(string(out)), nil
}

// cleanupStep best-effort removes the staged APK. Failures are logged, not
// propagated: per §4.7 and §7, cleanup never flips the workflow to Failed.
func cleanupStep(opener StreamOpener, devicePath string) {
	conn, err := opener.OpenStream(fmt.Sprintf("shell:rm %s", devicePath))
	if err != nil {
		logger.Warn("cleanup open failed", logger.KeyError, err)
		return
	}
	defer conn.Close()

	if _, err := conn.ReadAll(); err != nil && !isStreamClosed(err) {
		logger.Warn("cleanup shell command failed", logger.KeyError, err)
	}
}

func isStreamClosed(err error) bool {
	code, ok := adberrors.Code(err)
	return ok && code == adberrors.StreamClosed
}
