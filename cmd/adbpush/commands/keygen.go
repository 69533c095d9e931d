package commands

import (
	"github.com/marmos91/adbpush/internal/adb/adbkey"
	"github.com/spf13/cobra"
)

// keygenResult is the structured result of "adbpush keygen".
type keygenResult struct {
	Path      string `json:"path"`
	PublicKey string `json:"public_key"`
}

func (r keygenResult) String() string {
	return r.PublicKey
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Load or create the RSA keypair used for ADB authentication",
	Long: `Keygen forces adbpush's RSA key store to either load the existing
keypair at --keypath or generate a new 2048-bit one, then prints the
ADB/OpenSSH public-key line that gets sent to the device during AUTH.

Examples:
  adbpush keygen
  adbpush keygen --keypath ~/.android`,
	RunE: runKeygen,
}

func runKeygen(cmd *cobra.Command, args []string) error {
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

	key, err := adbkey.LoadOrCreate(cfg.Key.Path, cfg.Key.Comment)
	if err != nil {
		return err
	}

	return printer.Result(keygenResult{
		Path:      cfg.Key.Path,
		PublicKey: key.PublicKeyLine(),
	})
}
