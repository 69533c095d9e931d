// Command adbpush speaks the ADB wire protocol directly to a networked
// device, authenticates with an RSA key, pushes a local APK over the SYNC
// sub-protocol, and installs it with "pm install -r".
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/adbpush/cmd/adbpush/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
