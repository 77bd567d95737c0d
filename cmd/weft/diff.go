// Diff command for the weft CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/storymesh/weft/pkg/types"
)

var diffCmd = &cobra.Command{
	Use:   "diff <universe-a> <universe-b>",
	Short: "Compare two universes by lineage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine()
		if err != nil {
			fmt.Fprintln(os.Stderr, "diff:", err)
			os.Exit(exitSysError)
		}
		defer eng.Close()

		d, err := eng.Diff(context.Background(), args[0], args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "diff:", err)
			os.Exit(exitUserError)
		}

		if flagJSON {
			return printJSON(d)
		}

		if d.Empty() {
			fmt.Println("No differences")
			return nil
		}
		for _, kind := range types.DiffKinds {
			k := d.Kind(kind)
			if k.Empty() {
				continue
			}
			fmt.Printf("%s: +%d -%d ~%d\n", kind, len(k.Added), len(k.Removed), len(k.Changed))
			for _, id := range k.Added {
				fmt.Printf("  + %s\n", id)
			}
			for _, id := range k.Removed {
				fmt.Printf("  - %s\n", id)
			}
			for _, ch := range k.Changed {
				fmt.Printf("  ~ %s\n", ch.StableID)
				for _, fc := range ch.Fields {
					fmt.Printf("      %s: %q -> %q\n", fc.Field, fc.From, fc.To)
				}
			}
		}
		return nil
	},
}
