// Root command for the weft CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/storymesh/weft/internal/paths"
	"github.com/storymesh/weft/pkg/weft"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
)

// Values loaded from config.yaml by PersistentPreRunE so all subcommands
// can use them.
var (
	configDataDir  string
	configLogLevel string
	configStrict   bool
)

var rootCmd = &cobra.Command{
	Use:     "weft",
	Short:   "Weft is a versioned, branchable narrative graph store",
	Version: weft.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = cfg.GetString(cfgKeyDataDir)
		configLogLevel = cfg.GetString(cfgKeyLogLevel)
		configStrict = cfg.GetBool(cfgKeyStrictCoverage)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.weft)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.weft-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(universeCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(promoteCmd)
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config.yaml data_dir > WEFT_DATA_DIR env > $(CWD)/.weft-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > WEFT_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
