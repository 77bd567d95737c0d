// Promote command for the weft CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storymesh/weft/pkg/types"
)

var promoteStrategy string

var promoteCmd = &cobra.Command{
	Use:   "promote <source-universe-id> <target-universe-id>",
	Short: "Merge a branch back into another universe",
	Long: `Promote folds the source universe's changes into the target. With
append_missing only items absent from the target are added; with overwrite
changed items are updated to the source's version as well. The merged
delta is validated against the target and rejected as a whole on any
continuity violation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !types.ValidStrategy(promoteStrategy) {
			fmt.Fprintf(os.Stderr, "promote: unknown strategy %q (valid: %s, %s)\n",
				promoteStrategy, types.StrategyAppendMissing, types.StrategyOverwrite)
			os.Exit(exitUserError)
		}

		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "promote:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		result, err := eng.Promote(context.Background(), args[0], args[1], promoteStrategy)
		if err != nil {
			fmt.Fprintln(os.Stderr, "promote:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(result)
		}

		if result.Rejected != nil {
			printValidation(result.Rejected)
			fmt.Fprintln(os.Stderr, "promotion rejected, target untouched")
			os.Exit(exitUserError)
		}
		if len(result.AppliedIDs) == 0 {
			fmt.Println("Nothing to promote")
			return nil
		}
		fmt.Printf("Promoted %d items\n", len(result.AppliedIDs))
		for _, id := range result.AppliedIDs {
			fmt.Printf("  %s\n", id)
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteStrategy, "strategy", types.StrategyAppendMissing, "merge strategy (append_missing or overwrite)")
}
