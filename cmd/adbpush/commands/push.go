package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/adbpush/internal/adb/install"
	"github.com/marmos91/adbpush/internal/cliout"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <apk>",
	Short: "Push an APK to the device and install it",
	Long: `Push uploads a local APK file to the device over ADB's SYNC
sub-protocol, then runs "pm install -r" and removes the staged file.

Examples:
  # Install against the default device (localhost:5555)
  adbpush push app-release.apk

  # Install against a networked device
  adbpush push --host 192.168.1.42 --port 5555 app-release.apk

  # Emit machine-readable output
  adbpush push -o json app-release.apk`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func runPush(cmd *cobra.Command, args []string) error {
	apkPath := args[0]
	if _, err := os.Stat(apkPath); err != nil {
		return fmt.Errorf("apk not found: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}

	printer, err := newPrinter()
	if err != nil {
		return err
	}

	metrics, stopMetrics := startMetrics(cfg)
	defer stopMetrics(context.Background())

	dev, err := connectDevice(context.Background(), cfg, metrics)
	if err != nil {
		return err
	}
	defer dev.Close()

	renderer := cliout.NewProgressRenderer(os.Stdout)
	sink := func(line string) {
		printer.Progress(line)
		if printer.Format() == cliout.FormatText {
			renderer.Line(line)
		}
	}

	start := time.Now()
	result, err := install.Run(dev, dev.MaxData(), apkPath, sink, metrics)
	renderer.Done()

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.RecordPush(outcome, time.Since(start).Seconds())
	metrics.RecordInstall(outcome)
	if err != nil {
		return err
	}

	return printer.Result(result)
}
