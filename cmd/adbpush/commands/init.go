package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/adbpush/internal/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Init writes a config.yaml populated with adbpush's defaults, at
--config or the default location ($XDG_CONFIG_HOME/adbpush/config.yaml).

Examples:
  adbpush init
  adbpush init --config ./adbpush.yaml
  adbpush init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit device.host / device.port to match your target")
	fmt.Printf("  2. Push an APK: adbpush push --config %s app-release.apk\n", path)

	return nil
}
