// Package commands implements adbpush's CLI command tree: push, keygen,
// icon and init, plus version, each a thin cobra wrapper around the
// internal packages.
package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/adbpush/internal/cliout"
	"github.com/marmos91/adbpush/internal/config"
	"github.com/marmos91/adbpush/internal/logger"
	"github.com/spf13/cobra"
)

// Build-time version information, injected via ldflags the same way the
// teacher's cmd/dittofs does.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile    string
	outputFlag string
	noColor    bool

	deviceHost string
	devicePort int
	keyPath    string
)

var rootCmd = &cobra.Command{
	Use:   "adbpush",
	Short: "Push and install an APK over the ADB wire protocol",
	Long: `adbpush speaks the Android Debug Bridge protocol directly to a
networked device (typically a TV-class set-top on port 5555): it
authenticates with an RSA key, pushes a local APK over ADB's SYNC
sub-protocol, and runs "pm install -r" to install it.

Use "adbpush [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/adbpush/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colorized output")

	rootCmd.PersistentFlags().StringVar(&deviceHost, "host", "", "adb daemon host (overrides config)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 0, "adb daemon port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&keyPath, "keypath", "", "RSA keypair path (overrides config)")

	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(iconCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. It is called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("adbpush %s (commit: %s, built: %s)\n", Version, Commit, Date)
		return nil
	},
}

// loadConfig loads configuration per --config, then applies any
// explicitly-set --host/--port/--keypath flags on top of it, so flags
// always win over the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("host") {
		cfg.Device.Host = deviceHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Device.Port = devicePort
	}
	if cmd.Flags().Changed("keypath") {
		cfg.Key.Path = keyPath
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newPrinter builds the output printer for the current command, honoring
// --output and --no-color.
func newPrinter() (*cliout.Printer, error) {
	format, err := cliout.ParseFormat(outputFlag)
	if err != nil {
		return nil, err
	}
	color := !noColor && logger.IsTerminal(os.Stdout.Fd())
	return cliout.NewPrinter(os.Stdout, format, color), nil
}

func initLogging(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}
