package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/adbpush/internal/apkzip"
	"github.com/spf13/cobra"
)

var iconOutPath string

func init() {
	iconCmd.Flags().StringVarP(&iconOutPath, "output-file", "f", "", "write the extracted icon to this path (default: <apk>.icon)")
}

type iconResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func (r iconResult) String() string {
	return fmt.Sprintf("wrote %d bytes to %s", r.Bytes, r.Path)
}

var iconCmd = &cobra.Command{
	Use:   "icon <apk>",
	Short: "Extract a launcher icon from an APK",
	Long: `Icon scans an APK's ZIP central directory for the best-scoring
launcher-icon candidate (preferring PNG over WebP over JPEG, density- and
name-scored per adbpush's selection rules) and writes its raw bytes to
disk, without shelling out to any ZIP or image library.

Examples:
  adbpush icon app-release.apk
  adbpush icon app-release.apk -f launcher.png`,
	Args: cobra.ExactArgs(1),
	RunE: runIcon,
}

func runIcon(cmd *cobra.Command, args []string) error {
	apkPath := args[0]

	printer, err := newPrinter()
	if err != nil {
		return err
	}

	data, err := apkzip.ExtractIcon(apkPath)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("no launcher icon found in %s", apkPath)
	}

	outPath := iconOutPath
	if outPath == "" {
		outPath = apkPath + ".icon"
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write icon: %w", err)
	}

	return printer.Result(iconResult{Path: outPath, Bytes: len(data)})
}
