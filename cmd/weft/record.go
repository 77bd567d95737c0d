// Record command for the weft CLI: validate and apply a delta batch.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	recordFile   string
	recordDryRun bool
)

var recordCmd = &cobra.Command{
	Use:   "record <universe-id>",
	Short: "Validate and apply a delta batch to a universe",
	Long: `Record reads a delta batch from a JSON file (or stdin with --file -),
runs it through continuity validation, and applies it atomically. With
--dry-run the batch is only validated and nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		universeID := args[0]

		delta, err := readDeltaFile(recordFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "record:", err)
			os.Exit(exitUserError)
		}

		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "record:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		ctx := context.Background()

		if recordDryRun {
			validation, err := eng.Validate(ctx, universeID, delta)
			if err != nil {
				fmt.Fprintln(os.Stderr, "validate:", err)
				os.Exit(exitUserError)
			}
			if flagJSON {
				return printJSON(validation)
			}
			printValidation(validation)
			if !validation.OK {
				os.Exit(exitUserError)
			}
			fmt.Println("Delta is valid")
			return nil
		}

		result, err := eng.Commit(ctx, universeID, delta)
		if err != nil {
			fmt.Fprintln(os.Stderr, "commit:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(result)
		}
		printValidation(result.Validation)
		if !result.Committed {
			fmt.Fprintln(os.Stderr, "delta rejected")
			os.Exit(exitUserError)
		}
		fmt.Println("Delta committed")
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordFile, "file", "-", "delta batch JSON file (- for stdin)")
	recordCmd.Flags().BoolVar(&recordDryRun, "dry-run", false, "validate only, write nothing")
}
