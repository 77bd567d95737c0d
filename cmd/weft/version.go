// Version command for the weft CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/storymesh/weft/pkg/weft"
)

const modulePath = "github.com/storymesh/weft"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the weft version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "weft v%s\nmodule: %s\n", weft.Version, modulePath)
		return nil
	},
}
