//go:build !windows && !linux

package logger

import "golang.org/x/sys/unix"

// isTerminal checks whether fd is a terminal on BSD-family systems (macOS
// included), which use TIOCGETA rather than Linux's TCGETS.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
